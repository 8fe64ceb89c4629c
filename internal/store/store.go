package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/reelsmith/api/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the MySQL-backed persistence layer for projects, scenes
// and generation logs.
type Store struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.AutoMigrate(&model.Project{}, &model.Scene{}, &model.LogEntry{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm connection, mainly for tests.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) Project(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SaveProject(ctx context.Context, p *model.Project) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *Store) Scenes(ctx context.Context, projectID string) ([]model.Scene, error) {
	var scenes []model.Scene
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("scene_order asc").
		Find(&scenes).Error
	return scenes, err
}

func (s *Store) CreateScenes(ctx context.Context, scenes []model.Scene) error {
	if len(scenes) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&scenes).Error
}

func (s *Store) UpdateScene(ctx context.Context, sceneID string, cols map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&model.Scene{}).
		Where("id = ?", sceneID).
		Updates(cols).Error
}

func (s *Store) AppendLog(ctx context.Context, entry *model.LogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) Logs(ctx context.Context, projectID string) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id asc").
		Find(&entries).Error
	return entries, err
}

// StaleProjects returns non-terminal projects untouched since cutoff.
// The sweeper uses this to time out stuck generations.
func (s *Store) StaleProjects(ctx context.Context, cutoff time.Time) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.WithContext(ctx).
		Where("status NOT IN ?", []model.ProjectStatus{model.StatusCompleted, model.StatusFailed}).
		Where("updated_at < ?", cutoff).
		Find(&projects).Error
	return projects, err
}
