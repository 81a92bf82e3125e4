package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/storage"
	"github.com/felixgeelhaar/buraco/pkg/domain/audit"
)

var (
	auditFile   string
	auditOutput string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the hash-chained audit trail",
}

func openAuditLog() (*storage.AuditLog, error) {
	path := auditFile
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Audit.Path
	}
	return storage.NewAuditLog(path), nil
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that no audit entry was altered or removed",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openAuditLog()
		if err != nil {
			return err
		}
		n, err := log.Verify()
		if errors.Is(err, audit.ErrChainBroken) {
			return NewCLIError("audit trail has been tampered with", "Compare "+log.Path()+" with a backup", err)
		}
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %d entries, chain intact (%s)\n", n, log.Path())
		return nil
	},
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print audit entries, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(auditOutput); err != nil {
			return err
		}
		log, err := openAuditLog()
		if err != nil {
			return err
		}
		entries, err := log.Load()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		switch auditOutput {
		case "json":
			return writeJSON(w, entries)
		case "yaml":
			return writeYAML(w, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "No audit entries.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s  %-28s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.SessionID)
			if sev, ok := e.Metadata["severity"]; ok {
				fmt.Fprintf(w, "  %v", sev)
			}
			fmt.Fprintln(w)
		}
		return nil
	},
}

func init() {
	auditCmd.PersistentFlags().StringVar(&auditFile, "file", "", "Audit file (default audit.path from config, then "+storage.DefaultAuditFile+")")
	auditListCmd.Flags().StringVarP(&auditOutput, "output", "o", "human", "Output format (human, json, yaml)")
	auditCmd.AddCommand(auditVerifyCmd, auditListCmd)
	RootCmd.AddCommand(auditCmd)
}
