// Package github files pothole reports as GitHub issues.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// IssueSink opens one issue per report in owner/repo.
type IssueSink struct {
	client *gh.Client
	owner  string
	repo   string
}

// ParseRepo splits "owner/name".
func ParseRepo(full string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(full), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (want owner/name)", full)
	}
	return parts[0], parts[1], nil
}

// NewIssueSink authenticates with token against github.com.
func NewIssueSink(ctx context.Context, token, fullRepo string) (*IssueSink, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token not provided (set GITHUB_TOKEN)")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return newIssueSink(oauth2.NewClient(ctx, ts), fullRepo, "")
}

// NewIssueSinkWithClient uses httpClient as is and, when baseURL is set,
// talks to that API root instead of api.github.com.
func NewIssueSinkWithClient(httpClient *http.Client, fullRepo, baseURL string) (*IssueSink, error) {
	return newIssueSink(httpClient, fullRepo, baseURL)
}

func newIssueSink(httpClient *http.Client, fullRepo, baseURL string) (*IssueSink, error) {
	owner, repo, err := ParseRepo(fullRepo)
	if err != nil {
		return nil, err
	}
	client := gh.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = u
	}
	return &IssueSink{client: client, owner: owner, repo: repo}, nil
}

func (s *IssueSink) Name() string {
	return "github:" + s.owner + "/" + s.repo
}

// Send creates the issue and returns its URL.
func (s *IssueSink) Send(ctx context.Context, doc report.Document) (string, error) {
	labels := Labels(doc)
	issue, _, err := s.client.Issues.Create(ctx, s.owner, s.repo, &gh.IssueRequest{
		Title:  gh.Ptr(doc.Title()),
		Body:   gh.Ptr(IssueBody(doc)),
		Labels: &labels,
	})
	if err != nil {
		return "", fmt.Errorf("create issue in %s/%s: %w", s.owner, s.repo, err)
	}
	return issue.GetHTMLURL(), nil
}

// Labels returns the issue labels for doc.
func Labels(doc report.Document) []string {
	labels := []string{"pothole"}
	if doc.Severity != nil {
		if level := doc.Severity.Level(); level != severity.LevelUnknown {
			labels = append(labels, "severity:"+level.String())
		}
	}
	return labels
}

// IssueBody renders doc as Markdown.
func IssueBody(doc report.Document) string {
	var b strings.Builder
	if doc.Feedback != nil {
		fmt.Fprintf(&b, "%s **%s**\n\n%s\n\n", doc.Feedback.Icon, doc.Feedback.Message, doc.Feedback.Deadline)
	}
	if loc := doc.Location; loc != nil {
		b.WriteString("### Location\n\n")
		fmt.Fprintf(&b, "- Address: %s\n", loc.Address.Line(loc.Number))
		if loc.Address.CEP != "" {
			fmt.Fprintf(&b, "- CEP: %s\n", loc.Address.CEP)
		}
		if c := loc.Coordinates; c != nil {
			fmt.Fprintf(&b, "- Map: https://www.google.com/maps?q=%s\n", c.String())
		}
		b.WriteString("\n")
	}
	if q := doc.Quality; q != nil {
		fmt.Fprintf(&b, "### Photo\n\n%d×%d, %.1f KB", q.Width, q.Height, q.SizeKB)
		if len(q.Problems) > 0 {
			fmt.Fprintf(&b, " (quality warnings: %s)", strings.Join(q.Problems, ", "))
		}
		b.WriteString("\n\n")
	}
	if a := doc.Analysis; a != nil {
		b.WriteString("### Assessment\n\n")
		b.WriteString(a.Text)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "<sub>session %s · prompt %s</sub>\n", doc.SessionID, doc.PromptVersion)
	return b.String()
}
