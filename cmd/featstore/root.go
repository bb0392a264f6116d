package main

import (
	"log"
	"os"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/featurestore"
	"github.com/featstore/featstore/registry"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "featstore",
	Short: "Feature store operations",
	Long:  "Apply feature definitions, materialize feature views into the online store and retrieve feature rows.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "featstore.yaml",
		"store configuration file")
}

func openClient(loopLoad bool) (*featurestore.FeatureStoreClient, error) {
	cfg, err := api.LoadConfiguration(cfgFile)
	if err != nil {
		return nil, err
	}

	reg, err := registry.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	return featurestore.NewFeatureStoreClient(cfg, reg,
		featurestore.WithLoopData(loopLoad),
		featurestore.WithErrorLogger(log.New(os.Stderr, "featstore ", log.LstdFlags)),
	)
}
