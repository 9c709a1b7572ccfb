// privacyctl drives the privacy engine against a local ledger: seeding the
// catalogue, storing and querying encrypted patient records, managing consent
// and break-glass grants, and reading the audit trail. In a replicated
// deployment the ordering substrate supplies each operation's context; here a
// local source issues one per invocation.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/happy0030/healthcare-blockchain-poc/internal/privacy"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/config"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/encryption"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/logger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/monitoring"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "privacyctl",
		Short:        "Privacy-tiered patient record engine",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(grantCmd())
	rootCmd.AddCommand(revokeCmd())
	rootCmd.AddCommand(breakGlassCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(levelsCmd())

	return rootCmd
}

// app bundles the wired components one command invocation works with
type app struct {
	engine  *privacy.Engine
	ops     *opctx.Source
	metrics *monitoring.Metrics
	log     *logger.Logger
}

// withApp loads configuration, opens the ledger, builds the engine, runs fn,
// and closes the ledger whether or not fn succeeds
func withApp(fn func(*app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel)

	kv, err := openLedger(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer kv.Close()

	secrets, err := cfg.Encryption.Secrets()
	if err != nil {
		return err
	}
	suite, err := encryption.NewSuite(secrets)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return fn(&app{
		engine:  privacy.NewEngine(kv, suite, log, metrics),
		ops:     opctx.NewSource(),
		metrics: metrics,
		log:     log,
	})
}

func openLedger(cfg *config.Config, log *logger.Logger) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case config.BackendLevelDB:
		return ledger.OpenLevelDB(cfg.Ledger.Path)
	case config.BackendPostgres:
		return ledger.OpenPostgres(&cfg.Ledger.Postgres)
	case config.BackendMemory:
		log.Warn("Using in-memory ledger; state will not survive this process")
		return ledger.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.Ledger.Backend)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Seed the privacy level catalogue and role access rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				return a.engine.InitCatalogue(a.ops.Next())
			})
		},
	}
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Encrypt and store a patient record",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")
			dataType, _ := cmd.Flags().GetString("type")
			data, _ := cmd.Flags().GetString("data")
			level, _ := cmd.Flags().GetInt("level")

			return withApp(func(a *app) error {
				meta, err := a.engine.AddRecord(a.ops.Next(), patientID, dataType, data, level)
				if err != nil {
					return err
				}
				return printJSON(meta)
			})
		},
	}
	cmd.Flags().String("patient", "", "patient identifier")
	cmd.Flags().String("type", "", "data type, e.g. bloodType")
	cmd.Flags().String("data", "", "plaintext payload")
	cmd.Flags().Int("level", 0, "privacy level 1-4")
	return cmd
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch one stored record (ciphertext, never plaintext)",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")
			dataType, _ := cmd.Flags().GetString("type")

			return withApp(func(a *app) error {
				record, err := a.engine.GetRecord(patientID, dataType)
				if err != nil {
					return err
				}
				return printJSON(record)
			})
		},
	}
	cmd.Flags().String("patient", "", "patient identifier")
	cmd.Flags().String("type", "", "data type")
	return cmd
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a patient's records as a requester",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")
			requesterID, _ := cmd.Flags().GetString("requester")
			role, _ := cmd.Flags().GetString("role")

			return withApp(func(a *app) error {
				start := time.Now()
				results, err := a.engine.QueryPatientData(a.ops.Next(), patientID, requesterID, role)
				if err != nil {
					return err
				}
				a.metrics.ObserveQueryDuration(role, time.Since(start).Seconds())
				return printJSON(results)
			})
		},
	}
	cmd.Flags().String("patient", "", "patient identifier")
	cmd.Flags().String("requester", "", "requester identifier")
	cmd.Flags().String("role", "", "requester role")
	return cmd
}

func grantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant consent for a grantee to see one data type",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")
			granteeID, _ := cmd.Flags().GetString("grantee")
			dataType, _ := cmd.Flags().GetString("type")
			expiry, _ := cmd.Flags().GetString("expiry")

			return withApp(func(a *app) error {
				grant, err := a.engine.GrantConsent(a.ops.Next(), patientID, granteeID, dataType, expiry)
				if err != nil {
					return err
				}
				return printJSON(grant)
			})
		},
	}
	cmd.Flags().String("patient", "", "patient identifier")
	cmd.Flags().String("grantee", "", "grantee identifier")
	cmd.Flags().String("type", "", "data type")
	cmd.Flags().String("expiry", "", "expiry timestamp, RFC 3339")
	return cmd
}

func revokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a previously granted consent",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")
			granteeID, _ := cmd.Flags().GetString("grantee")
			dataType, _ := cmd.Flags().GetString("type")

			return withApp(func(a *app) error {
				grant, err := a.engine.RevokeConsent(a.ops.Next(), patientID, granteeID, dataType)
				if err != nil {
					return err
				}
				return printJSON(grant)
			})
		},
	}
	cmd.Flags().String("patient", "", "patient identifier")
	cmd.Flags().String("grantee", "", "grantee identifier")
	cmd.Flags().String("type", "", "data type")
	return cmd
}

func breakGlassCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "break-glass",
		Short: "Activate emergency access for a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			patientID, _ := cmd.Flags().GetString("patient")
			reason, _ := cmd.Flags().GetString("reason")

			return withApp(func(a *app) error {
				event, err := a.engine.BreakGlassAccess(a.ops.Next(), doctorID, patientID, reason)
				if err != nil {
					return err
				}
				return printJSON(event)
			})
		},
	}
	cmd.Flags().String("doctor", "", "doctor identifier")
	cmd.Flags().String("patient", "", "patient identifier")
	cmd.Flags().String("reason", "", "emergency justification")
	return cmd
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print a patient's audit trail, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")

			return withApp(func(a *app) error {
				events, err := a.engine.GetAuditTrail(patientID)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	cmd.Flags().String("patient", "", "patient identifier")
	return cmd
}

func levelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "Print the privacy level catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				levels, err := a.engine.GetPrivacyLevels()
				if err != nil {
					return err
				}
				return printJSON(levels)
			})
		},
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
