// Command bcontract works with behavioural contract specs: validate and
// format contract files, verify event logs, and run a demo agent under
// enforcement.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	contracts "github.com/aswhitehouse/behavioural-contracts"
	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "bcontract",
		Short: "behavioural contracts for LLM agents",
		Long:  "Runtime enforcement of declarative behavioural contracts over LLM-backed agents.",
	}

	validateCmd := &cobra.Command{
		Use:   "validate <spec-file>",
		Short: "validate a contract spec file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, hash, err := contract.LoadWithHash(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("OK  version=%s role=%s %s\n", spec.Version, spec.Role, hash)
			return nil
		},
	}

	fmtCmd := &cobra.Command{
		Use:   "fmt <spec-file>",
		Short: "emit the canonically formatted contract document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var loose map[string]any
			if err := yaml.Unmarshal(data, &loose); err != nil {
				return fmt.Errorf("parse spec: %w", err)
			}
			out, err := contract.Generate(loose)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	var (
		demoEventLog string
		demoRSI      float64
	)
	demoCmd := &cobra.Command{
		Use:   "demo <spec-file>",
		Short: "run a stub trading agent under enforcement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := contracts.LoadSpec(args[0])
			if err != nil {
				return err
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			opts := []contracts.Option{contracts.WithLogger(logger)}
			if demoEventLog != "" {
				sink, err := contracts.NewEventLogSink(demoEventLog)
				if err != nil {
					return err
				}
				defer sink.Close()
				opts = append(opts, contracts.WithSinks(sink))
			}

			enf, err := contracts.New(spec, opts...)
			if err != nil {
				return err
			}
			defer enf.Close()

			guarded := enf.Wrap(demoAgent(spec))
			resp := guarded(context.Background(), contracts.Call{
				Args: map[string]any{"rsi": demoRSI},
			})

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	demoCmd.Flags().StringVar(&demoEventLog, "event-log", "", "append contract events to a JSONL log")
	demoCmd.Flags().Float64Var(&demoRSI, "rsi", 50, "simulated RSI indicator fed to the demo agent")

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "inspect emitted contract events",
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <event-log>",
		Short: "verify the hash chain of a JSONL event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := contracts.VerifyEventLog(args[0])
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))
			if !result.Valid {
				return fmt.Errorf("event log chain broken")
			}
			return nil
		},
	}

	var recentLimit int
	recentCmd := &cobra.Command{
		Use:   "recent <event-db>",
		Short: "list recent events from a sqlite event store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := contracts.NewEventStoreSink(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.Recent(recentLimit)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Printf("%s  %-18s %-8s %s\n", ev.Timestamp, ev.EventType, ev.Role, ev.Reason)
			}
			return nil
		},
	}
	recentCmd.Flags().IntVar(&recentLimit, "limit", 20, "maximum events to list")

	eventsCmd.AddCommand(verifyCmd, recentCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(validateCmd, fmtCmd, demoCmd, eventsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// demoAgent is a deterministic rule-based trader: oversold buys,
// overbought sells, anything else holds.
func demoAgent(spec *contracts.Spec) contracts.AgentFunc {
	key := spec.Response.BehaviourKey()
	return func(ctx context.Context, call contracts.Call) (any, error) {
		rsi, _ := call.Args["rsi"].(float64)

		resp := contracts.Response{
			key:                "HOLD",
			"confidence":       "medium",
			"reasoning":        "RSI in neutral territory",
			"temperature_used": call.Temperature,
		}
		switch {
		case rsi < 30:
			resp[key] = "BUY"
			resp["confidence"] = "high"
			resp["reasoning"] = "RSI indicates oversold conditions"
		case rsi > 70:
			resp[key] = "SELL"
			resp["confidence"] = "high"
			resp["reasoning"] = "RSI indicates overbought conditions"
		}
		if len(spec.Policy.ComplianceTags) > 0 {
			resp["compliance_tags"] = spec.Policy.ComplianceTags
		}
		return resp, nil
	}
}
