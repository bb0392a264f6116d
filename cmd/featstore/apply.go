package main

import (
	"fmt"
	"os"

	"github.com/featstore/featstore/api"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// definitionsFile is the shape of an apply manifest. Definitions register in
// dependency order: entities and sources first, services last.
type definitionsFile struct {
	Entities        []*api.FeatureEntity       `yaml:"entities"`
	Sources         []*api.DataSource          `yaml:"sources"`
	FeatureViews    []*api.FeatureView         `yaml:"feature_views"`
	OnDemandViews   []*api.OnDemandFeatureView `yaml:"on_demand_feature_views"`
	FeatureServices []*api.FeatureService      `yaml:"feature_services"`
}

var applyCmd = &cobra.Command{
	Use:   "apply <definitions.yaml>",
	Short: "Register feature definitions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var defs definitionsFile
		if err := yaml.Unmarshal(data, &defs); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		client, err := openClient(false)
		if err != nil {
			return err
		}
		defer client.Close()
		reg := client.Registry()

		applied := 0
		for _, entity := range defs.Entities {
			if err := reg.RegisterFeatureEntity(entity); err != nil {
				return fmt.Errorf("entity %s: %w", entity.FeatureEntityName, err)
			}
			applied++
		}
		for _, source := range defs.Sources {
			if err := reg.RegisterDataSource(source); err != nil {
				return fmt.Errorf("source %s: %w", source.Name, err)
			}
			applied++
		}
		for _, view := range defs.FeatureViews {
			if err := reg.RegisterFeatureView(view); err != nil {
				return fmt.Errorf("feature view %s: %w", view.Name, err)
			}
			applied++
		}
		for _, view := range defs.OnDemandViews {
			if err := reg.RegisterOnDemandFeatureView(view); err != nil {
				return fmt.Errorf("on demand feature view %s: %w", view.Name, err)
			}
			applied++
		}
		for _, service := range defs.FeatureServices {
			if err := reg.RegisterFeatureService(service); err != nil {
				return fmt.Errorf("feature service %s: %w", service.Name, err)
			}
			applied++
		}

		fmt.Printf("applied %d definitions\n", applied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
