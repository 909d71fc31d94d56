// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modgate/pkg/requirement"
)

func newProfilesCommand(app *App) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in requirement profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProfiles(app)
		},
	}

	profilesCmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show the requirements of a profile",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			names := make([]string, 0, len(requirement.Profiles()))
			for _, p := range requirement.Profiles() {
				names = append(names, string(p))
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return showProfile(cmd, app, requirement.Profile(args[0]))
		},
	})

	return profilesCmd
}

func listProfiles(app *App) error {
	fmt.Fprintln(app.stdout, titleStyle.Render("Requirement profiles"))
	fmt.Fprintln(app.stdout)
	for _, p := range requirement.Profiles() {
		set, err := requirement.NewProfileSet(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "  %s %s\n", nameStyle.Render(fmt.Sprintf("%-8s", p)),
			mutedStyle.Render(fmt.Sprintf("(%d requirements)", len(set.Requirements()))))
	}
	return nil
}

func showProfile(cmd *cobra.Command, app *App, p requirement.Profile) error {
	set, err := requirement.NewProfileSet(p)
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	fmt.Fprintln(app.stdout, titleStyle.Render("Profile "+string(p)))
	fmt.Fprintln(app.stdout)
	for i, r := range set.Requirements() {
		fmt.Fprintf(app.stdout, "  %d. %s %s\n", i+1, nameStyle.Render(r.Name()), describeRequirement(r))
	}
	return nil
}
