package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/platform/mailer"
	"github.com/tracebind/passport-backend/internal/platform/neo4jdb"
	"github.com/tracebind/passport-backend/internal/platform/qrlabel"
	"github.com/tracebind/passport-backend/internal/platform/vault"
	"github.com/tracebind/passport-backend/internal/realtime/bus"
)

// Clients holds the external integrations. Each one is optional: when its
// environment is absent the field stays nil and the services that depend on
// it degrade gracefully (no emails, no printable labels, no graph
// projection, local-only SSE fan-out).
type Clients struct {
	Vault  vault.FileVault
	Mailer mailer.Client
	Labels qrlabel.Renderer
	Graph  *neo4jdb.Client
	Bus    bus.Bus
}

func wireClients(log *logger.Logger) (Clients, error) {
	var c Clients

	if envSet("MEDIA_GCS_BUCKET_NAME") {
		fv, err := vault.NewFileVault(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init file vault: %w", err)
		}
		c.Vault = fv
	} else {
		log.Warn("MEDIA_GCS_BUCKET_NAME not set; file storage disabled")
	}

	if envSet("SENDGRID_API_KEY") {
		mc, err := mailer.NewFromEnv(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init mailer: %w", err)
		}
		c.Mailer = mc
	} else {
		log.Warn("SENDGRID_API_KEY not set; invitation emails disabled")
	}

	if envSet("LABEL_FONT") {
		lr, err := qrlabel.NewRenderer(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init label renderer: %w", err)
		}
		c.Labels = lr
	} else {
		log.Warn("LABEL_FONT not set; passport label rendering disabled")
	}

	graph, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	c.Graph = graph
	if graph == nil {
		log.Warn("NEO4J_URI not set; supply chain graph projection disabled")
	}

	if envSet("REDIS_ADDR") {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		c.Bus = b
	}

	return c, nil
}

func envSet(name string) bool {
	return strings.TrimSpace(os.Getenv(name)) != ""
}
