package cmd

import (
	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

func newNotificationsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "List notifications or mark them read",
	}
	cmd.AddCommand(newNotificationsListCommand(a), newNotificationsReadCommand(a))
	return cmd
}

func newNotificationsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			return a.renderInbox(store.Snapshot().Notifications)
		}),
	}
}

func newNotificationsReadCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "read [notification-id]",
		Short: "Mark a notification, or all of them, as read",
		Long: `Mark a notification as read.

Examples:
  goodaideas notifications read ntf-V1StGXR8_Z5jdHi6
  goodaideas notifications read --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(_ *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return domainerrors.Validation("give a notification id or --all")
			}
			store, err := a.store()
			if err != nil {
				return err
			}
			if all {
				store.MarkAllNotificationsRead()
			} else if !store.MarkNotificationAsRead(args[0]) {
				return domainerrors.NotFoundf("no unread notification %q", args[0])
			}
			return a.renderInbox(store.Snapshot().Notifications)
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "mark every notification read")
	return cmd
}

func (a *app) renderInbox(in domain.Inbox) error {
	rows := make([][]string, 0, len(in.Items))
	for _, n := range in.Items {
		status := "unread"
		if n.Read {
			status = "read"
		}
		rows = append(rows, []string{n.ID, string(n.Type), n.Message, status, n.CreatedAt.Format("2006-01-02 15:04")})
	}
	if in.Items == nil {
		in.Items = []domain.Notification{}
	}
	return a.render(in, Table{
		Title:   "Notifications",
		Headers: []string{"ID", "Type", "Message", "Status", "Received"},
		Rows:    rows,
		Empty:   "No notifications.",
	})
}
