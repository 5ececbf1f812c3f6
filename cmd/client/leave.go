package main

import (
	"errors"

	"github.com/dkeye/Lobby/internal/adapters/presence"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/ui"
	"github.com/spf13/cobra"
)

func newLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave the room recorded by the last play",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			roomID := domain.RoomID(e.prefs.GetString(core.PrefCurrentRoomID))
			if roomID == "" {
				ui.PrintWarning("not in a room")
				return nil
			}
			err = presence.New(e.api).RemoveMember(cmd.Context(), roomID, e.self.ID)
			if err != nil && !errors.Is(err, domain.ErrRoomNotFound) && !errors.Is(err, domain.ErrMemberNotFound) {
				return err
			}
			e.prefs.Delete(core.PrefCurrentRoomID)
			e.prefs.Delete(core.PrefJoinCode)
			if err := e.prefs.Save(); err != nil {
				return err
			}
			ui.PrintSuccess("left room " + string(roomID))
			return nil
		},
	}
}
