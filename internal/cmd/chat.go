package cmd

import (
	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/di/providers"
	"github.com/goodaideas/goodaideas/internal/tui"
)

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <team-id>",
		Short: "Open a team's live chat in the terminal",
		Long: `Open a team's chat room. New messages arrive live; press enter to send
and esc to leave.

Examples:
  goodaideas chat 3f1e2d4c-5b6a-4789-8abc-def012345678`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			store, err := a.requireSession()
			if err != nil {
				return err
			}
			chat, err := invoke[*providers.TeamChatHandle](a)
			if err != nil {
				return err
			}

			// The chat keeps ctx for its live channel.
			if err := chat.Open(cmd.Context(), args[0]); err != nil {
				return err
			}

			snap := store.Snapshot()
			return tui.RunChat(cmd.Context(), chat.TeamChat, snap.Session.UserID(), snap.Settings)
		}),
	}
}
