package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"attendr/internal/engine/card"
	"attendr/internal/pkg/logger"
	"attendr/internal/platform/config"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "cardctl",
		Short:        "Render school ID cards offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (built-in branding when empty)")

	// --- render command ------------------------------------------------------
	var in struct {
		id, name, role, category, photo, out string
	}
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Write a card PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := newGenerator(configPath)
			if err != nil {
				return err
			}
			pdf, err := gen.Generate(card.Input{
				Identifier:     in.id,
				DisplayName:    in.name,
				Role:           card.RoleFor(in.role),
				Category:       in.category,
				PhotoReference: in.photo,
			})
			if err != nil {
				return err
			}

			out := in.out
			if out == "" {
				out = card.Filename(in.name)
			}
			if out == "-" {
				_, err = os.Stdout.Write(pdf)
				return err
			}
			if err := os.WriteFile(out, pdf, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(pdf))
			return nil
		},
	}
	renderCmd.Flags().StringVar(&in.id, "id", "", "Identifier printed on the card and encoded in its payload")
	renderCmd.Flags().StringVar(&in.name, "name", "", "Display name")
	renderCmd.Flags().StringVar(&in.role, "role", "student", "User role: student, teacher, admin or staff")
	renderCmd.Flags().StringVar(&in.category, "category", "", "Grade or position")
	renderCmd.Flags().StringVar(&in.photo, "photo", "", "Photo path relative to the asset root")
	renderCmd.Flags().StringVarP(&in.out, "out", "o", "", "Output file, - for stdout (default <name>_carnet.pdf)")
	renderCmd.MarkFlagRequired("id")
	root.AddCommand(renderCmd)

	// --- payload command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "payload [identifier]",
		Short: "Print the string encoded in a card's QR code and barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := newGenerator(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), gen.Payload(args[0]))
			return nil
		},
	})

	// --- categories command --------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:       "categories [role]",
		Short:     "List the categories offered for a role",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"student", "teacher", "admin", "staff"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(card.Categories(args[0]), "\n"))
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newGenerator(configPath string) (*card.Generator, error) {
	if configPath == "" {
		logger.Init(config.LoggingConfig{Level: "warn", Format: "text", Output: "stderr"}, "cardctl")
		return card.NewGenerator(card.DefaultBranding(), card.NewAssetStore("."))
	}

	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// stdout may carry the PDF
	if cfg.Logging.Output != "file" {
		cfg.Logging.Output = "stderr"
	}
	logger.Init(cfg.Logging, "cardctl")

	branding, err := card.NewBranding(cfg.Card)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("asset_root", cfg.Assets.Root).Msg("using configured branding")
	return card.NewGenerator(branding, card.NewAssetStore(cfg.Assets.Root))
}
