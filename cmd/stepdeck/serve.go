package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/rahul/stepdeck/internal/commands"
	"github.com/rahul/stepdeck/internal/gateway"
	"github.com/rahul/stepdeck/internal/governance"
	"github.com/rahul/stepdeck/internal/observability"
	"github.com/rahul/stepdeck/internal/session"
	"github.com/rahul/stepdeck/pkg/config"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var statusEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat gateways",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			observability.PrintBanner()

			// Route all log output through the terminal mutex so it never
			// interleaves with status lines.
			log.SetOutput(observability.NewTermWriter())

			d, err := ctx.openDeck(nil)
			if err != nil {
				return err
			}
			defer d.store.Close()

			// One server per database. Telegram also rejects a second long
			// poller on the same token.
			lock := flock.New(filepath.Join(filepath.Dir(d.cfg.Database.Path), "stepdeck.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another stepdeck serve instance is already running")
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					log.Printf("Failed to release lock: %v", err)
				}
			}()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			auth := session.NewStaticAuth(session.User{ID: d.cfg.Auth.UserID, DisplayName: d.cfg.Auth.DisplayName})
			if _, ok := auth.CurrentUser(); !ok {
				log.Printf("No auth.user_id configured; edits and jobs will be refused")
			}
			sess := session.New(auth, d.recipes, d.projects, d.cfg.GetPollInterval())
			if err := sess.Open(runCtx); err != nil {
				return err
			}
			defer sess.Close()

			registry := commands.NewRegistry()
			commands.RegisterAll(registry, &commands.Deck{
				Session:    sess,
				Workspaces: session.NewWorkspaces(sess, d.editor, d.dispatcher),
			})

			gov, err := buildPolicy(d.cfg.Governance)
			if err != nil {
				return err
			}
			router := gateway.NewRouter(registry, gov, d.logger)

			messengers, err := buildMessengers(d.cfg, router)
			if err != nil {
				return err
			}
			if len(messengers) == 0 {
				return errors.New("no gateway is enabled; set gateways.telegram or gateways.discord in the config")
			}

			observability.SetStatus(observability.StateServing, "")

			go func() {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-runCtx.Done():
						return
					case <-ticker.C:
						observability.Heartbeat()
						d.logger.LogHeartbeat()
					}
				}
			}()

			if statusEvery > 0 && observability.IsTerminal(os.Stderr) {
				go func() {
					ticker := time.NewTicker(statusEvery)
					defer ticker.Stop()
					for {
						select {
						case <-runCtx.Done():
							return
						case <-ticker.C:
							observability.PrintStatus()
						}
					}
				}()
			}

			var wg sync.WaitGroup
			for name, m := range messengers {
				wg.Add(1)
				go func(name string, m gateway.Messenger) {
					defer wg.Done()
					if err := m.Start(); err != nil {
						log.Printf("\033[91m[ FAIL ] %s gateway error: %v\033[0m", name, err)
						stop()
					}
				}(name, m)
			}

			<-runCtx.Done()

			for name, m := range messengers {
				if err := m.Stop(); err != nil {
					log.Printf("Error stopping %s gateway: %v", name, err)
				}
			}
			wg.Wait()
			observability.SetStatus(observability.StateIdle, "")
			log.Println("\033[95m[ EXIT ] stepdeck stopped.\033[0m")
			return nil
		},
	}

	cmd.Flags().DurationVar(&statusEvery, "status-every", 10*time.Second, "How often to print the status line (0 disables)")
	return cmd
}

func buildPolicy(cfg config.GovernanceConfig) (*governance.DefaultPolicyEngine, error) {
	gov := governance.NewDefaultPolicyEngine()
	for _, name := range cfg.DeniedCommands {
		gov.DenyCommand(name)
	}
	for _, pattern := range cfg.DeniedArguments {
		if err := gov.DenyArguments(pattern); err != nil {
			return nil, err
		}
	}
	for _, chat := range cfg.AllowedChats {
		gov.AllowChat(chat)
	}
	return gov, nil
}

func buildMessengers(cfg *config.Config, handler gateway.Handler) (map[string]gateway.Messenger, error) {
	messengers := make(map[string]gateway.Messenger)
	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, handler)
		if err != nil {
			return nil, err
		}
		messengers["telegram"] = tg
	}
	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, handler)
		if err != nil {
			return nil, err
		}
		messengers["discord"] = dc
	}
	return messengers, nil
}
