package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

var (
	analyzeCEP    string
	analyzeNumber string
	analyzeForce  bool
	analyzeOutput string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze PHOTO",
	Short: "Check a photo and assess the pothole's severity",
	Long: `Runs the photo through the quality check and, if it passes (or you
choose to continue), asks the vision model for a severity assessment.
With --cep the report also carries the address.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(analyzeOutput); err != nil {
			return err
		}
		// #nosec G304 -- the user names the photo
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read photo: %w", err)
		}

		services, err := loadServices(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer services.Close()

		req := analyzeRequest{
			Photo:  data,
			CEP:    analyzeCEP,
			Number: analyzeNumber,
			Force:  analyzeForce,
		}
		confirm := promptContinue(cmd.InOrStdin(), cmd.ErrOrStderr())
		res, err := runAnalyze(cmd.Context(), services.Intake, req, confirm)
		if err != nil {
			return err
		}
		if err := renderDocument(cmd.OutOrStdout(), res.Document, analyzeOutput, res.Warnings); err != nil {
			return err
		}
		if a := res.Document.Analysis; a != nil && !a.OK() {
			return NewCLIError("analysis failed", "The model call did not succeed; try again", nil)
		}
		return nil
	},
}

type analyzeRequest struct {
	Photo  []byte
	CEP    string
	Number string
	Force  bool
}

type analyzeResult struct {
	Document report.Document
	Outcome  application.Outcome
	Warnings []string
}

// runAnalyze drives a throwaway session through the wizard so the CLI and
// the HTTP API share one code path. confirm is asked when the photo fails
// the quality check and Force is off.
func runAnalyze(ctx context.Context, intake *application.IntakeService, req analyzeRequest, confirm func(quality.Report) bool) (analyzeResult, error) {
	var res analyzeResult

	sess, err := intake.StartSession(ctx)
	if err != nil {
		return res, err
	}
	defer func() { _ = intake.EndSession(context.WithoutCancel(ctx), sess.ID) }()

	if _, err := intake.Advance(ctx, sess.ID); err != nil {
		return res, err
	}
	if req.CEP != "" {
		ar, err := intake.SetAddress(ctx, sess.ID, req.CEP, req.Number)
		if err != nil {
			return res, err
		}
		res.Warnings = append(res.Warnings, ar.Warnings...)
	}

	s := newSpinner(" Analyzing photo...")
	s.Start()
	pr, err := intake.SubmitPhoto(ctx, sess.ID, req.Photo, req.Force)
	s.Stop()

	var gateErr *application.QualityGateError
	if errors.As(err, &gateErr) {
		if confirm == nil || !confirm(gateErr.Report) {
			_, _ = intake.ConfirmPhoto(ctx, sess.ID, false)
			return res, err
		}
		s.Start()
		pr, err = intake.ConfirmPhoto(ctx, sess.ID, true)
		s.Stop()
	}
	if err != nil {
		return res, err
	}

	doc, err := intake.Document(ctx, sess.ID)
	if err != nil {
		return res, err
	}
	res.Document = doc
	res.Outcome = pr.Outcome
	return res, nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriterFile(os.Stderr))
	s.Suffix = suffix
	return s
}

// promptContinue asks on in whether to analyze a photo that failed the
// quality check. Anything but y/yes (including EOF) declines.
func promptContinue(in io.Reader, out io.Writer) func(quality.Report) bool {
	reader := bufio.NewReader(in)
	return func(q quality.Report) bool {
		yellow := color.New(color.FgYellow, color.Bold)
		yellow.Fprintln(out, "⚠ The photo may not be good enough for an accurate assessment:")
		for _, p := range q.Problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		fmt.Fprint(out, "Continue anyway? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes", "s", "sim":
			return true
		}
		return false
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCEP, "cep", "", "CEP of the pothole's street")
	analyzeCmd.Flags().StringVar(&analyzeNumber, "number", "", "House number near the pothole")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "Analyze even if the photo fails the quality check")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "human", "Output format: human, json, yaml")
	RootCmd.AddCommand(analyzeCmd)
}
