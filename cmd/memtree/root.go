package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	verboseFlag = "verbose"
	configFlag  = "config"
	nodesFlag   = "nodes"
)

var rootCmd = &cobra.Command{
	Use:   "memtree",
	Short: "memtree, an in-memory filesystem engine",
	Long: `memtree builds an in-memory tree of file and directory nodes from a
seed definitions file and lets you inspect it.`,
}

func Execute() error {
	rootCmd.PersistentFlags().IntP(verboseFlag, "v", 3, "Log verbosity level between 1 (error) and 5 (trace)")
	rootCmd.PersistentFlags().StringP(configFlag, "c", "", "Path to a YAML or JSON config override file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}

	viper.AutomaticEnv()

	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
