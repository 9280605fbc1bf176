package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nergy-se/hourcontroller/pkg/api/v1/config"
	"github.com/nergy-se/hourcontroller/pkg/controller/modbusgate"
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	"github.com/nergy-se/hourcontroller/pkg/modbusclient"
	"github.com/nergy-se/hourcontroller/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "hourselect",
		Short: "Inspect hour selection and drive the load gate by hand",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("error setting logrus loglevel: %w", err)
			}
			logrus.SetLevel(lvl)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "logrus log level")

	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(hoursCmd())
	rootCmd.AddCommand(gateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// planFile is the input of the plan command. JSON files are valid YAML.
type planFile struct {
	Today    []float64             `yaml:"today"`
	Tomorrow []float64             `yaml:"tomorrow"`
	Hour     *int                  `yaml:"hour"`
	Opts     hourselection.Options `yaml:"options"`
}

func (p *planFile) PricesToday() []float64         { return p.Today }
func (p *planFile) PricesTomorrow() []float64      { return p.Tomorrow }
func (p *planFile) Options() hourselection.Options { return p.Opts }

type planResult struct {
	Today           hourselection.HourObject `json:"today"`
	Tomorrow        hourselection.HourObject `json:"tomorrow"`
	PreserveInterim bool                     `json:"preserveInterim"`
	Hour            int                      `json:"hour"`
	Caution         bool                     `json:"caution"`
	Allowance       float64                  `json:"allowance"`
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file>",
		Short: "Classify prices from a YAML or JSON file and print the hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return plan(f, cmd.OutOrStdout())
		},
	}
}

func plan(r io.Reader, w io.Writer) error {
	in := &planFile{Opts: hourselection.Options{MinimumLoadKW: config.DefaultMinimumLoadKW}}
	err := yaml.NewDecoder(r).Decode(in)
	if err != nil {
		return fmt.Errorf("decoding plan: %w", err)
	}

	s := hourselection.New(in, in, nil, hourselection.WithCacheSize(0))
	if in.Hour != nil {
		s.SetMockHour(*in.Hour)
	}
	caller := hourselection.CallerToday
	if len(in.Tomorrow) > 0 {
		caller = hourselection.CallerTomorrow
	}
	err = s.Update(caller)
	if err != nil {
		return err
	}

	allowance, caution := s.CurrentAllowance()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(planResult{
		Today:           s.HoursToday(),
		Tomorrow:        s.HoursTomorrow(),
		PreserveInterim: s.PreserveInterim(),
		Hour:            s.CurrentHour(),
		Caution:         caution,
		Allowance:       allowance,
	})
}

func hoursCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Print the hours last saved by the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			h, err := st.LoadHours()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(h)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "/var/lib/hourcontroller/hourcontroller.db", "database path")
	return cmd
}

func gateCmd() *cobra.Command {
	var address string
	var slaveID int
	var readonly bool

	dial := func() (*modbusgate.Gate, func() error, error) {
		client, err := modbusclient.Dial(address, byte(slaveID))
		if err != nil {
			return nil, nil, err
		}
		return modbusgate.New(client, readonly), client.Close, nil
	}

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Read or write the modbus load gate",
	}
	cmd.PersistentFlags().StringVar(&address, "addr", "", "tcp modbus address")
	cmd.PersistentFlags().IntVar(&slaveID, "slave", 1, "modbus slave id")
	cmd.PersistentFlags().BoolVar(&readonly, "readonly", false, "never write to the gate")

	cmd.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Print the gate state and alarms",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := gate.State()
			if err != nil {
				return err
			}
			alarms, err := gate.Alarms()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"state":  s.Map(),
				"alarms": alarms,
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "allow <allowance>",
		Short: "Set the allowed share of the load, 0 to 1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allowance, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid allowance: %w", err)
			}
			if allowance < 0 || allowance > 1 {
				return fmt.Errorf("allowance must be between 0 and 1")
			}
			gate, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()
			return gate.AllowLoad(allowance)
		},
	})
	return cmd
}
