package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Project is the browser context a job runs against. The agent owns its
// meaning; here it is only listed and selected.
type Project struct {
	ID        string
	Name      string
	TargetURL string
	CreatedAt time.Time
}

type projectDoc struct {
	Name      string `json:"name"`
	TargetURL string `json:"targetUrl,omitempty"`
}

type ProjectRepo struct {
	Store *Store
}

func NewProjectRepo(s *Store) *ProjectRepo {
	return &ProjectRepo{Store: s}
}

func (p *ProjectRepo) Create(ctx context.Context, name, targetURL string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, errors.New("project name is required")
	}
	doc, err := p.Store.CreateDocument(ctx, CollectionProjects, Fields{
		"name":      name,
		"targetUrl": targetURL,
		"createdAt": ServerTimestamp(),
	})
	if err != nil {
		return Project{}, err
	}
	return decodeProject(doc)
}

func (p *ProjectRepo) Get(ctx context.Context, id string) (Project, error) {
	doc, err := p.Store.Get(ctx, CollectionProjects, id)
	if err != nil {
		return Project{}, err
	}
	return decodeProject(doc)
}

// List returns projects sorted by name.
func (p *ProjectRepo) List(ctx context.Context) ([]Project, error) {
	docs, err := p.Store.GetAll(ctx, CollectionProjects, OrderBy{Field: "name"})
	if err != nil {
		return nil, err
	}
	return decodeProjects(docs)
}

func (p *ProjectRepo) Subscribe(ctx context.Context, interval time.Duration) *Subscription {
	return p.Store.Subscribe(ctx, CollectionProjects, interval, OrderBy{Field: "name"})
}

func (p *ProjectRepo) FromSnapshot(snap Snapshot) ([]Project, error) {
	if snap.Err != nil {
		return nil, snap.Err
	}
	return decodeProjects(snap.Docs)
}

func decodeProjects(docs []Document) ([]Project, error) {
	out := make([]Project, 0, len(docs))
	for _, d := range docs {
		pr, err := decodeProject(d)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, nil
}

func decodeProject(d Document) (Project, error) {
	var doc projectDoc
	if err := json.Unmarshal(d.Data, &doc); err != nil {
		return Project{}, fmt.Errorf("decode project %s: %w", d.ID, err)
	}
	return Project{ID: d.ID, Name: doc.Name, TargetURL: doc.TargetURL, CreatedAt: d.CreatedAt}, nil
}
