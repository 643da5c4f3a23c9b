package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/formfhir/formfhir/internal/config"
	"github.com/formfhir/formfhir/internal/domain/forms"
	"github.com/formfhir/formfhir/internal/platform/middleware"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "formfhir",
		Short:        "Form definition and submission to FHIR Questionnaire transcoder",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(convertCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the transcoding API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg, os.Stdout)

	e, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	lvl, err := cfg.Level()
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// newServer builds the echo instance with global middleware and routes.
func newServer(cfg *config.Config, logger zerolog.Logger) (*echo.Echo, error) {
	bodyLimit, err := cfg.BodyLimitBytes()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = middleware.JSONSerializer{}
	e.Validator = forms.NewRequestValidator()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	fhirGroup := e.Group("/fhir")
	formsHandler := forms.NewHandler(forms.NewService(logger))
	formsHandler.RegisterRoutes(fhirGroup)

	return e, nil
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "convert <form|questionnaire|submission|response>",
		Short:     "Transcode one JSON document from a file or stdin to stdout",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"form", "questionnaire", "submission", "response"},
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, _ := cmd.Flags().GetString("in")
			schemaPath, _ := cmd.Flags().GetString("schema")

			logger := zerolog.New(cmd.ErrOrStderr()).Level(zerolog.WarnLevel).With().Timestamp().Logger()
			c := &converter{svc: forms.NewService(logger), validator: forms.NewRequestValidator()}

			raw, err := readInput(cmd.InOrStdin(), inPath)
			if err != nil {
				return err
			}
			schema, err := readSchema(schemaPath)
			if err != nil {
				return err
			}

			out, err := c.convert(cmd.Context(), args[0], raw, schema)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("encode output: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().String("in", "", "input file (default stdin)")
	cmd.Flags().String("schema", "", "form schema file (JSON array of fields) for submission and response")
	return cmd
}

type converter struct {
	svc       *forms.Service
	validator *forms.RequestValidator
}

func (c *converter) convert(ctx context.Context, kind string, raw []byte, schema []forms.FormField) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch kind {
	case "form":
		var form forms.Form
		if err := json.Unmarshal(raw, &form); err != nil {
			return nil, fmt.Errorf("decode form: %w", err)
		}
		if err := c.validator.Validate(&form); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
		return c.svc.EncodeForm(ctx, &form)
	case "questionnaire":
		return c.svc.DecodeQuestionnaire(ctx, raw)
	case "submission":
		var sub forms.FormSubmission
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		return c.svc.EncodeSubmission(ctx, &sub, schema)
	case "response":
		return c.svc.DecodeResponse(ctx, raw, schema)
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

func readSchema(path string) ([]forms.FormField, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var schema []forms.FormField
	if err := json.Unmarshal(b, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return schema, nil
}
