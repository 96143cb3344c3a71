package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"go.viam.com/collisiondistance/distancefield"
	"go.viam.com/collisiondistance/logging"
	"go.viam.com/collisiondistance/referenceframe"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// newLogger returns the command logger and a function closing its log file, if any.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewLogger("sdfdistance")
	if c.Bool(generalFlagDebug) {
		logger = logging.NewDebugLogger("sdfdistance")
	}
	path := c.Path(generalFlagLogFile)
	if path == "" {
		return logger, func() {}
	}
	appender := logging.NewFileAppender(path)
	logger.AddAppender(appender)
	return logger, func() {
		//nolint:errcheck
		logger.Sync()
		if err := appender.Close(); err != nil {
			printf(c.App.ErrWriter, "failed to close log file %q: %v", path, err)
		}
	}
}

// loadModel parses the URDF and applies the SRDF when one is given.
func loadModel(c *cli.Context) (*referenceframe.Model, error) {
	model, err := referenceframe.ParseURDFFile(c.Path(generalFlagURDF))
	if err != nil {
		return nil, err
	}
	if path := c.Path(generalFlagSRDF); path != "" {
		srdf, err := referenceframe.ParseSRDFFile(path)
		if err != nil {
			return nil, err
		}
		if err := model.ApplySRDF(srdf); err != nil {
			return nil, errors.Wrapf(err, "applying SRDF file %q", path)
		}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

func loadConfig(c *cli.Context) (distancefield.Config, error) {
	path := c.Path(generalFlagConfig)
	if path == "" {
		return distancefield.DefaultConfig(), nil
	}
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return distancefield.Config{}, errors.Wrapf(err, "failed to read config file %q", path)
	}
	attributes := map[string]interface{}{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return distancefield.Config{}, errors.Wrapf(err, "failed to parse config file %q", path)
	}
	cfg, err := distancefield.ConfigFromAttributes(attributes)
	if err != nil {
		return distancefield.Config{}, errors.Wrapf(err, "config file %q", path)
	}
	return *cfg, nil
}

// loadRobot reads the archive named by the archive flag, or builds every grid when there is none.
func loadRobot(
	c *cli.Context,
	model *referenceframe.Model,
	logger logging.Logger,
	reg prometheus.Registerer,
) (*distancefield.CollisionRobot, error) {
	opts := []distancefield.Option{distancefield.WithMetrics(distancefield.NewMetrics(reg))}
	if path := c.Path(flagArchive); path != "" {
		return distancefield.NewCollisionRobotFromFile(model, path, logger, opts...)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	r, err := distancefield.NewCollisionRobot(c.Context, model, cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	logger.Infow("built distance fields", "links", len(model.LinksWithCollisionGeometry()), "duration", time.Since(start))
	return r, nil
}

// parseJoints turns NAME=VALUE pairs into joint inputs.
func parseJoints(values []string) (map[string]float64, error) {
	inputs := map[string]float64{}
	for _, v := range values {
		name, raw, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("joint input %q must look like NAME=VALUE", v)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "joint input %q", v)
		}
		inputs[name] = value
	}
	return inputs, nil
}

// metricsRouter serves the registry on /metrics and a health check on /healthz.
func metricsRouter(reg *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// serveMetrics starts a metrics endpoint when an address is configured. The returned function stops it.
func serveMetrics(c *cli.Context, logger logging.Logger) (*prometheus.Registry, func()) {
	reg := prometheus.NewRegistry()
	addr := c.String(generalFlagMetricsAddr)
	if addr == "" {
		return reg, func() {}
	}
	server := &http.Server{Addr: addr, Handler: metricsRouter(reg), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Infow("serving metrics", "addr", addr)
	return reg, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warnw("failed to stop metrics server", "error", err)
		}
	}
}
