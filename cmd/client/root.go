package main

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/logging"
	"github.com/dkeye/Lobby/internal/prefs"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lobby-client",
		Short:   "Find or create a multiplayer room and connect to its relay",
		Version: releaseVersion,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml)")
	cmd.PersistentFlags().String("server-url", "http://localhost:8080", "lobby server base URL")
	cmd.PersistentFlags().String("player-name", "Player", "display name")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("prefs-path", "", "where to keep identity and room state")
	cmd.PersistentFlags().Duration("request-timeout", 5*time.Second, "timeout of a single server request")

	cmd.AddCommand(newPlayCmd(), newRoomsCmd(), newLeaveCmd())
	return cmd
}

// env is what every subcommand needs before it talks to the server.
type env struct {
	cfg   *config.Client
	prefs *prefs.Store
	api   *api.Client
	self  domain.Player
}

func setup(ctx context.Context, cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadClient(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, true)

	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, prefs: store, api: api.NewClient(cfg.ServerURL, "", cfg.RequestTimeout)}
	if err := e.identify(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// identify reuses the stored token when the server still knows it and
// signs in anonymously otherwise.
func (e *env) identify(ctx context.Context) error {
	name := e.cfg.PlayerName
	if token := e.prefs.GetString(core.PrefPlayerToken); token != "" {
		e.api.Token = token
		me, err := e.api.Rename(ctx, name)
		if err == nil {
			e.self = domain.Player{ID: me.PlayerID, Name: me.Name}
			return e.remember(token)
		}
		if domain.Classify(err) != domain.KindConfiguration {
			return err
		}
		log.Info().Str("module", "client").Msg("stored identity rejected, signing in again")
		e.api.Token = ""
	}

	me, err := e.api.SignIn(ctx, name)
	if err != nil {
		return err
	}
	e.self = domain.Player{ID: me.PlayerID, Name: me.Name}
	return e.remember(me.Token)
}

func (e *env) remember(token string) error {
	e.prefs.SetString(core.PrefPlayerToken, token)
	e.prefs.SetString(core.PrefPlayerID, string(e.self.ID))
	e.prefs.SetString(core.PrefPlayerName, e.self.Name)
	return e.prefs.Save()
}

// wsScheme picks the relay websocket scheme matching the server URL.
func wsScheme(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err == nil && strings.EqualFold(u.Scheme, "https") {
		return "wss"
	}
	return "ws"
}
