package main

import (
	"fmt"

	"github.com/dkeye/Lobby/internal/adapters/presence"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/ui"
	"github.com/spf13/cobra"
)

func newRoomsCmd() *cobra.Command {
	var count, minSlots int
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List joinable rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			rooms, err := presence.New(e.api).QueryJoinableRooms(cmd.Context(),
				domain.RoomFilter{Count: count, MinAvailableSlots: minSlots})
			if err != nil {
				return err
			}
			infos := make([]core.RoomInfo, 0, len(rooms))
			for i := range rooms {
				infos = append(infos, core.InfoOf(&rooms[i]))
			}
			fmt.Println(ui.RoomsView(infos))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "maximum rooms to list")
	cmd.Flags().IntVar(&minSlots, "min-slots", 1, "only rooms with at least this many free slots")
	return cmd
}
