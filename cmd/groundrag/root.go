package main

import (
	"github.com/perbu/groundrag/internal/config"
	"github.com/perbu/groundrag/internal/logging"
	ragerr "github.com/perbu/groundrag/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// flagKeys maps command line flags onto configuration keys. A flag is bound
// only when the running command defines it.
var flagKeys = map[string]string{
	"docs-dir":    "docs_dir",
	"index-dir":   "index.dir",
	"provider":    "provider",
	"ollama-url":  "ollama.base_url",
	"embed-model": "models.embed",
	"gen-model":   "models.generate",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"chunk-size":  "chunk.size",
	"overlap":     "chunk.overlap",
	"top-k":       "retrieval.top_k",
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

// NewRootCmd creates the root groundrag command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "groundrag",
		Short: "groundrag - answer questions from your own documents",
		Long: "groundrag indexes a directory of text, markdown and PDF documents with a local\n" +
			"embedding model and answers questions grounded in the retrieved passages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "path to config file")
	pf.String("docs-dir", "", "directory holding the source documents")
	pf.String("index-dir", "", "directory holding the persisted index")
	pf.String("provider", "", "model provider: ollama or openai")
	pf.String("ollama-url", "", "Ollama base URL")
	pf.String("embed-model", "", "embedding model name")
	pf.String("gen-model", "", "generation model name")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")
	pf.BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIndexCmd(a),
		newSearchCmd(a),
		newAskCmd(a),
		newChatCmd(a),
		newCompareCmd(a),
		newVersionCmd(),
	)

	return root
}

// init resolves the configuration with the running command's flags bound on
// top, so flag > env > file > defaults holds everywhere.
func (a *app) init(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, func(v *viper.Viper) error {
		return bindFlags(v, cmd.Flags())
	})
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "creating logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	if cfg.File != "" {
		log.Debug("config loaded", zap.String("config", cfg.File))
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = ragerr.Errorf(ragerr.CodeCLISetupFailure, "binding %s flag: %w", f.Name, err)
		}
	})
	if bindErr != nil {
		return bindErr
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		v.Set("log.level", "debug")
	}
	return nil
}
