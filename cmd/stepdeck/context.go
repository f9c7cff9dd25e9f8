package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rahul/stepdeck/internal/dispatch"
	"github.com/rahul/stepdeck/internal/observability"
	"github.com/rahul/stepdeck/internal/recipe"
	"github.com/rahul/stepdeck/internal/session"
	"github.com/rahul/stepdeck/internal/store"
	"github.com/rahul/stepdeck/pkg/config"
)

// Files looked up in the working directory when --config is not given.
var defaultConfigFiles = []string{"config.yaml", "config.yml", "config.toml", "config.json"}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			path = findDefaultConfig()
		}
		if path == "" {
			c.config = config.Default()
			return
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func findDefaultConfig() string {
	for _, name := range defaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// deck is everything a one-shot CLI command needs.
type deck struct {
	cfg        *config.Config
	store      *store.Store
	logger     *observability.Logger
	editor     *recipe.Editor
	recipes    *store.RecipeRepo
	projects   *store.ProjectRepo
	dispatcher *dispatch.Dispatcher
}

func (c *commandContext) openDeck(events io.Writer) (*deck, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	logger := observability.NewLogger(cfg.Logging.Dir)
	if events != nil {
		logger.SetOutput(events)
	}
	editor := recipe.NewEditor()
	return &deck{
		cfg:        cfg,
		store:      st,
		logger:     logger,
		editor:     editor,
		recipes:    store.NewRecipeRepo(st, editor, logger),
		projects:   store.NewProjectRepo(st),
		dispatcher: dispatch.NewDispatcher(store.NewJobQueue(st), logger),
	}, nil
}

// withDeck opens the store for the duration of fn. Event lines go to stderr so
// stdout stays clean for the command's own output.
func (c *commandContext) withDeck(errOut io.Writer, fn func(*deck) error) error {
	d, err := c.openDeck(errOut)
	if err != nil {
		return err
	}
	defer d.store.Close()
	return fn(d)
}

// cliUser is who CLI edits are attributed to when auth.user_id is unset.
const cliUser = "local"

// workspace loads the lists once and returns a workspace for a single
// load, mutate, save round.
func (d *deck) workspace(ctx context.Context) (*session.Workspace, *session.Session, error) {
	user := session.User{ID: d.cfg.Auth.UserID, DisplayName: d.cfg.Auth.DisplayName}
	if user.ID == "" {
		user.ID = cliUser
	}
	s := session.New(session.NewStaticAuth(user), d.recipes, d.projects, d.cfg.GetPollInterval())
	if err := s.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	return session.NewWorkspace(s, d.editor, d.dispatcher), s, nil
}
