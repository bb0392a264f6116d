package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/featstore/featstore/featurestore"
	"github.com/spf13/cobra"
)

var (
	getEntities []string
	getRequest  []string
)

// parsePairs turns repeated key=value flags into aligned value slices, one
// row per flag occurrence order.
func parsePairs(pairs []string) (map[string][]interface{}, error) {
	result := make(map[string][]interface{})
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		result[key] = append(result[key], value)
	}
	return result, nil
}

var getCmd = &cobra.Command{
	Use:   "get <feature-service>",
	Short: "Read online feature rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entityRows, err := parsePairs(getEntities)
		if err != nil {
			return err
		}
		requestData, err := parsePairs(getRequest)
		if err != nil {
			return err
		}

		client, err := openClient(false)
		if err != nil {
			return err
		}
		defer client.Close()

		response, err := client.GetOnlineFeatures(cmd.Context(), &featurestore.OnlineFeaturesRequest{
			ServiceName: args[0],
			EntityRows:  entityRows,
			RequestData: requestData,
		})
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response.Rows)
	},
}

func init() {
	getCmd.Flags().StringArrayVarP(&getEntities, "entity", "e", nil, "join id value as key=value, repeatable")
	getCmd.Flags().StringArrayVarP(&getRequest, "request", "r", nil, "request field value as key=value, repeatable")
	rootCmd.AddCommand(getCmd)
}
