package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// MaxImageBytes bounds images read from disk or decoded from base64.
const MaxImageBytes = 20 << 20

type Server struct {
	mcpServer *mcp.Server
	pipeline  *application.Pipeline
	addresses application.AddressLookup
	aiKey     string
	log       *logger.Logger

	// imageRoot confines the path argument. Without it, paths are read
	// only while serving stdio.
	imageRoot string
	network   atomic.Bool
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients.
// Internal details are omitted; they go to the log instead.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// Deps are the collaborators the tools call into. ImageRoot, when set,
// is the only directory the path argument may read from.
type Deps struct {
	Pipeline  *application.Pipeline
	Addresses application.AddressLookup
	AIKey     string
	ImageRoot string
	Log       *logger.Logger
}

// NewServerFromServices exposes a wired process over MCP.
func NewServerFromServices(services *wiring.AppServices) (*Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services initialization returned nil")
	}
	deps := Deps{
		Pipeline:  services.Pipeline,
		Addresses: services.Addresses,
		AIKey:     services.Credentials.AIKey,
		Log:       services.Logger,
	}
	if services.Config != nil {
		deps.ImageRoot = services.Config.HTTP.ImageRoot
	}
	return NewServer(deps)
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Pipeline == nil || deps.Addresses == nil {
		return nil, fmt.Errorf("mcp server needs a pipeline and an address lookup")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.ImageRoot != "" {
		root, err := filepath.Abs(deps.ImageRoot)
		if err != nil {
			return nil, fmt.Errorf("invalid image root: %w", err)
		}
		deps.ImageRoot = root
	}

	info := mcp.ServerInfo{
		Name:    "buraco",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Buraco MCP Server"),
			mcp.WithDescription("Buraco grades pothole photos: a quality gate, an AI severity assessment and Brazilian ZIP lookups."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Check a photo with buraco_assess_image first, then call buraco_analyze_image. Use buraco_lookup_cep to resolve the address."),
		),
		pipeline:  deps.Pipeline,
		addresses: deps.Addresses,
		aiKey:     deps.AIKey,
		log:       deps.Log.With("component", "mcp"),
		imageRoot: deps.ImageRoot,
	}

	s.registerTools()
	s.registerSchemaResource()
	return s, nil
}

type ImageArgs struct {
	Path        string `json:"path,omitempty" jsonschema:"description=Path of a local image file"`
	ImageBase64 string `json:"image_base64,omitempty" jsonschema:"description=Base64-encoded image bytes (alternative to path)"`
}

type AnalyzeImageArgs struct {
	Path        string   `json:"path,omitempty" jsonschema:"description=Path of a local image file"`
	ImageBase64 string   `json:"image_base64,omitempty" jsonschema:"description=Base64-encoded image bytes (alternative to path)"`
	Force       FlexBool `json:"force,omitempty" jsonschema:"description=Analyse even when the photo fails the quality gate"`
}

type ExtractSeverityArgs struct {
	Text string `json:"text" jsonschema:"description=Assessment text produced by the model"`
}

type LookupCEPArgs struct {
	CEP string `json:"cep" jsonschema:"description=Brazilian ZIP code (8 digits; dashes and dots are ignored)"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("buraco_assess_image").
		Description("Run the photo quality gate (resolution, file size, proportions) without calling the model").
		Handler(s.handleAssessImage)

	s.mcpServer.Tool("buraco_analyze_image").
		Description("Assess a pothole photo with the AI model and return the severity and recommended deadline").
		Handler(s.handleAnalyzeImage)

	s.mcpServer.Tool("buraco_extract_severity").
		Description("Extract the severity label and feedback from an assessment text").
		Handler(s.handleExtractSeverity)

	s.mcpServer.Tool("buraco_lookup_cep").
		Description("Resolve a Brazilian ZIP code (CEP) to a street address").
		Handler(s.handleLookupCEP)
}

// FlexBool accepts both boolean and string ("true"/"false") JSON values.
// MCP clients sometimes send string values for boolean fields.
type FlexBool bool

func (fb *FlexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*fb = FlexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*fb = FlexBool(s == "true" || s == "1" || s == "yes")
		return nil
	}
	return fmt.Errorf("expected boolean or string, got %s", string(data))
}

func (s *Server) loadImage(path, b64 string) ([]byte, error) {
	switch {
	case path != "" && b64 != "":
		return nil, mcpErr("Pass either path or image_base64, not both.")
	case path != "":
		return s.readImageFile(path)
	case b64 != "":
		if base64.StdEncoding.DecodedLen(len(b64)) > MaxImageBytes {
			return nil, mcpErr(fmt.Sprintf("Image is larger than %d MB.", MaxImageBytes>>20))
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
		if err != nil {
			return nil, mcpErr("image_base64 is not valid base64.")
		}
		return data, nil
	default:
		return nil, mcpErr("An image is required: pass path or image_base64.")
	}
}

// readImageFile opens path inside the image root, or anywhere on stdio
// when no root is configured. Network clients without a root must send
// image_base64.
func (s *Server) readImageFile(path string) ([]byte, error) {
	var (
		f   *os.File
		err error
	)
	switch {
	case s.imageRoot != "":
		f, err = s.openInRoot(path)
	case s.network.Load():
		return nil, mcpErr("File paths are not accepted over network transports; pass image_base64.")
	default:
		// #nosec G304 -- stdio clients run on this machine as this user
		f, err = os.Open(path)
	}
	if err != nil {
		s.log.Debug("image open failed", "error", err.Error())
		return nil, mcpErr(fmt.Sprintf("Cannot read image %s.", path))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Cannot read image %s.", path))
	}
	if len(data) > MaxImageBytes {
		return nil, mcpErr(fmt.Sprintf("Image is larger than %d MB.", MaxImageBytes>>20))
	}
	return data, nil
}

// openInRoot resolves path against the image root. os.Root rejects
// escapes through ".." and symlinks.
func (s *Server) openInRoot(path string) (*os.File, error) {
	rel := path
	if filepath.IsAbs(path) {
		var err error
		if rel, err = filepath.Rel(s.imageRoot, path); err != nil {
			return nil, err
		}
	}
	root, err := os.OpenRoot(s.imageRoot)
	if err != nil {
		return nil, err
	}
	defer root.Close()
	return root.Open(rel)
}

func (s *Server) handleAssessImage(ctx context.Context, args ImageArgs) (any, error) {
	data, err := s.loadImage(args.Path, args.ImageBase64)
	if err != nil {
		return nil, err
	}
	return quality.Evaluate(data), nil
}

// AnalyzeImageResult is what buraco_analyze_image returns.
type AnalyzeImageResult struct {
	application.Outcome
	Message string `json:"message,omitempty"`
}

func (s *Server) handleAnalyzeImage(ctx context.Context, args AnalyzeImageArgs) (any, error) {
	data, err := s.loadImage(args.Path, args.ImageBase64)
	if err != nil {
		return nil, err
	}

	var decide application.Decider
	if args.Force {
		decide = application.Continue
	}
	var rec report.Record
	out, err := s.pipeline.Process(ctx, &rec, data, s.aiKey, decide)

	var gateErr *application.QualityGateError
	switch {
	case errors.Is(err, application.ErrMissingAPIKey):
		return nil, mcpErr("Photo analysis is unavailable: GEMINI_API_KEY (or OPENAI_API_KEY) is not set.")
	case errors.As(err, &gateErr):
		return AnalyzeImageResult{
			Outcome: out,
			Message: fmt.Sprintf("The photo failed the quality gate (%s). Call again with force=true to analyse it anyway.",
				strings.Join(gateErr.Report.Problems, ", ")),
		}, nil
	case err != nil:
		s.log.Warn("analyze image failed", "error", err.Error())
		return nil, mcpErr("Failed to analyse the photo.")
	}

	res := AnalyzeImageResult{Outcome: out}
	if !out.Analysis.OK() {
		res.Message = out.Analysis.Text
	}
	return res, nil
}

// SeverityResult is what buraco_extract_severity returns.
type SeverityResult struct {
	Severity severity.Label    `json:"severity"`
	Level    string            `json:"level"`
	Feedback severity.Feedback `json:"feedback"`
}

func (s *Server) handleExtractSeverity(ctx context.Context, args ExtractSeverityArgs) (any, error) {
	label := severity.Extract(args.Text)
	return SeverityResult{
		Severity: label,
		Level:    label.Level().String(),
		Feedback: severity.FeedbackFor(label),
	}, nil
}

func (s *Server) handleLookupCEP(ctx context.Context, args LookupCEPArgs) (any, error) {
	addr, err := s.addresses.LookupAddress(ctx, args.CEP)
	switch {
	case errors.Is(err, geo.ErrAddressNotFound):
		return nil, mcpErr(fmt.Sprintf("No address found for CEP %q.", args.CEP))
	case err != nil:
		s.log.Warn("cep lookup failed", "error", err.Error())
		return nil, mcpErr("The ZIP code service is unavailable. Try again later.")
	}
	return addr, nil
}

func (s *Server) Start() error {
	return s.StartStdio()
}

func (s *Server) StartStdio() error {
	return s.ServeStdio(context.Background())
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	s.network.Store(true)
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	s.network.Store(true)
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}

// Serve runs the named transport: stdio, http or ws.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	switch transport {
	case "", "stdio":
		return s.ServeStdio(ctx)
	case "http":
		return s.ServeHTTP(ctx, addr)
	case "ws", "websocket":
		return s.ServeWebSocket(ctx, addr)
	default:
		return fmt.Errorf("unsupported transport: %s (supported: stdio, http, ws)", transport)
	}
}
