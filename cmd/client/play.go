package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/adapters/presence"
	"github.com/dkeye/Lobby/internal/adapters/relayclient"
	"github.com/dkeye/Lobby/internal/adapters/ws"
	"github.com/dkeye/Lobby/internal/app/heartbeat"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join or create a room, wait for everyone to be ready, then connect to the relay",
		Long: `Quick-joins a public room with a free slot, or creates one when none is
available. Once every member is ready the host allocates a relay and
publishes its join code; guests pick it up and connect.

Examples:
  lobby-client play --ready
  lobby-client play --room 3f0c... --player-name Bob
  lobby-client play --room-name Friday --max-players 8 --private`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd.Context(), cmd)
		},
	}
	fs := cmd.Flags()
	fs.String("room", "", "join this room id instead of searching")
	fs.String("room-name", "MyLobby", "name of a room created by this client")
	fs.Int("max-players", 4, "capacity of a room created by this client")
	fs.Bool("private", false, "create the room as private")
	fs.Bool("ready", false, "mark this player ready as soon as it is in the room")
	fs.Duration("poll-interval", 2*time.Second, "room poll interval")
	fs.Duration("heartbeat-interval", 15*time.Second, "host heartbeat interval")
	fs.Duration("refresh-interval", 5*time.Second, "roster refresh interval")
	fs.Int("room-lost-after", 5, "consecutive missing polls before giving up")
	fs.Int("join-attempts", 3, "quick-join attempts before creating a room")
	return cmd
}

func play(ctx context.Context, cmd *cobra.Command) error {
	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	cfg := e.cfg
	transport := ws.NewTransport(wsScheme(cfg.ServerURL))

	o := &orch.Orchestrator{
		Store:     presence.New(e.api),
		Allocator: relayclient.New(e.api),
		Transport: transport,
		Prefs:     e.prefs,
		Self:      e.self,
		Config: orch.Config{
			RoomID:            domain.RoomID(cfg.RoomID),
			RoomName:          cfg.RoomName,
			MaxPlayers:        cfg.MaxPlayers,
			Private:           cfg.Private,
			PollInterval:      cfg.PollInterval,
			HeartbeatInterval: cfg.HeartbeatInterval,
			RefreshInterval:   cfg.RefreshInterval,
			RequestTimeout:    cfg.RequestTimeout,
			RoomLostAfter:     cfg.RoomLostAfter,
			JoinAttempts:      cfg.JoinAttempts,
		},
		OnRoster: func(entries []heartbeat.Entry) {
			fmt.Println(ui.RosterView(entries))
		},
	}
	o.OnState(func(s orch.State) {
		fmt.Println(ui.StateLine(s.String(), s.Terminal(), s == orch.StateFailed))
		if s == orch.StateJoined && cfg.Ready {
			go func() {
				if err := o.SetReady(ctx, true); err != nil {
					ui.PrintWarning("could not mark ready: " + err.Error())
				}
			}()
		}
	})

	fmt.Printf("%s %s\n", ui.IconPeer, ui.BoldStyle.Render(e.self.Name))
	st, err := o.Run(ctx)
	defer leave(o)

	switch st {
	case orch.StateHandedOff:
	case orch.StateFailed:
		return fmt.Errorf("%s", domain.UserMessage(err))
	default:
		// interrupted before the handoff
		return nil
	}

	if o.IsHost() {
		fmt.Println(ui.JoinCodeView(string(o.RoomID()), o.JoinCode()))
	}
	s := transport.Session()
	defer s.Close()
	go pumpStdin(ctx, s)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Done():
			ui.PrintWarning("relay session ended")
			return nil
		case f, ok := <-s.Frames():
			if !ok {
				continue
			}
			printFrame(f)
		}
	}
}

func leave(o *orch.Orchestrator) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Leave(ctx); err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("leave failed")
	}
}

func printFrame(f api.Frame) {
	switch f.Type {
	case api.FramePeerJoined:
		fmt.Printf("%s %s joined as %s\n", ui.IconPeer, f.From, f.Role)
	case api.FramePeerLeft:
		fmt.Printf("%s %s left\n", ui.IconPeer, f.From)
	case api.FrameData:
		fmt.Printf("%s: %s\n", ui.MutedStyle.Render(string(f.From)), f.Payload)
	case api.FrameError:
		ui.PrintError(f.Error)
	}
}

// pumpStdin relays each line typed by the user to every other peer.
func pumpStdin(ctx context.Context, s *ws.Session) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Send("", sc.Bytes()); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("send failed")
			return
		}
	}
}
