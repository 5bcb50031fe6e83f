package main

import (
	"fmt"

	"github.com/c360studio/adw/agent"
	"github.com/spf13/cobra"
)

func commandsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Inspect agent slash commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List slash commands available to pipeline agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			commands, err := agent.ListSlashCommands(cfg.Data.AppRoot)
			if err != nil {
				return err
			}
			if len(commands) == 0 {
				fmt.Printf("No slash commands under %s/%s\n", cfg.Data.AppRoot, agent.CommandsDir)
				return nil
			}
			for _, c := range commands {
				fmt.Println(c)
			}
			return nil
		},
	})

	return cmd
}
