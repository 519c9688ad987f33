package cmd

import (
	"time"

	cli "github.com/urfave/cli/v3"
)

const defaultCountryCode = "55"

// CommonFlags are shared by every nurture binary.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL for persistence (postgres://... or memory://)",
			Value:   "memory://",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "kafka",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "job-store-url",
			Usage:   "Redis URL for the job queue; empty keeps jobs in the database",
			Sources: cli.EnvVars("JOB_STORE_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP (configured with the OTEL_EXPORTER_OTLP_* variables)",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}

// ActionFlags configure the action handlers and their transports.
func ActionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing action plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP relay host; send_email fails without it",
			Sources: cli.EnvVars("SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Sources: cli.EnvVars("SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Sources: cli.EnvVars("SMTP_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Sources: cli.EnvVars("SMTP_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address of outgoing email",
			Sources: cli.EnvVars("SMTP_FROM"),
		},
		&cli.StringFlag{
			Name:    "whatsapp-url",
			Usage:   "WhatsApp gateway base URL; send_whatsapp fails without it",
			Sources: cli.EnvVars("WHATSAPP_URL"),
		},
		&cli.StringFlag{
			Name:    "whatsapp-token",
			Sources: cli.EnvVars("WHATSAPP_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "whatsapp-instance",
			Sources: cli.EnvVars("WHATSAPP_INSTANCE"),
		},
		&cli.StringFlag{
			Name:    "default-country-code",
			Usage:   "Country code prefixed to phone numbers without one",
			Value:   defaultCountryCode,
			Sources: cli.EnvVars("DEFAULT_COUNTRY_CODE"),
		},
		&cli.BoolFlag{
			Name:    "allow-trigger-cascade",
			Usage:   "Let events produced by a workflow enroll contacts into other workflows",
			Sources: cli.EnvVars("ALLOW_TRIGGER_CASCADE"),
		},
	}
}

// Flags concatenates flag groups.
func Flags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, group := range groups {
		flags = append(flags, group...)
	}

	return flags
}

// WorkerFlags configure step execution retries.
func WorkerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.IntFlag{
			Name:    "max-attempts",
			Usage:   "Attempts per step before the enrollment is marked failed",
			Value:   3,
			Sources: cli.EnvVars("MAX_ATTEMPTS"),
		},
		&cli.DurationFlag{
			Name:    "retry-backoff",
			Usage:   "Wait between two attempts of a failing step",
			Value:   10 * time.Second,
			Sources: cli.EnvVars("RETRY_BACKOFF"),
		},
	}
}

// PollerFlags configure how due jobs are claimed.
func PollerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "poll-interval",
			Value:   5 * time.Second,
			Sources: cli.EnvVars("POLL_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:    "job-lease",
			Usage:   "How long a claimed job stays hidden before it is delivered again",
			Value:   5 * time.Minute,
			Sources: cli.EnvVars("JOB_LEASE"),
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Value:   100,
			Sources: cli.EnvVars("POLL_BATCH_SIZE"),
		},
	}
}
