// Package memory provides an in-process persistence implementation backed by go-memdb.
package memory

import (
	"context"
	"fmt"

	"github.com/dukex/nurture/pkg/persistence"
	memdb "github.com/hashicorp/go-memdb"
)

const (
	tableWorkflows     = "workflows"
	tableEnrollments   = "enrollments"
	tableExecutions    = "executions"
	tableJobs          = "jobs"
	tableContacts      = "contacts"
	tableTags          = "tags"
	tableContactTags   = "contact_tags"
	tableScoreHistory  = "score_history"
	tableTemplates     = "templates"
	tableUsers         = "users"
	tableNotifications = "notifications"
)

func idIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "ID"}}
}

func fieldIndex(name, field string) *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: name, AllowMissing: true, Indexer: &memdb.StringFieldIndex{Field: field}}
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableWorkflows: {
				Name: tableWorkflows,
				Indexes: map[string]*memdb.IndexSchema{
					"id":      idIndex(),
					"trigger": fieldIndex("trigger", "TriggerType"),
				},
			},
			tableEnrollments: {
				Name: tableEnrollments,
				Indexes: map[string]*memdb.IndexSchema{
					"id": idIndex(),
					"pair": {
						Name: "pair",
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "WorkflowID"},
							&memdb.StringFieldIndex{Field: "ContactID"},
						}},
					},
				},
			},
			tableExecutions: {
				Name: tableExecutions,
				Indexes: map[string]*memdb.IndexSchema{
					"id":         idIndex(),
					"enrollment": fieldIndex("enrollment", "EnrollmentID"),
				},
			},
			tableJobs: {
				Name: tableJobs,
				Indexes: map[string]*memdb.IndexSchema{
					"id":         idIndex(),
					"enrollment": fieldIndex("enrollment", "EnrollmentID"),
				},
			},
			tableContacts: {
				Name:    tableContacts,
				Indexes: map[string]*memdb.IndexSchema{"id": idIndex()},
			},
			tableTags: {
				Name: tableTags,
				Indexes: map[string]*memdb.IndexSchema{
					"id": idIndex(),
					"name": {
						Name:    "name",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name", Lowercase: true},
					},
				},
			},
			tableContactTags: {
				Name: tableContactTags,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "ContactID"},
							&memdb.StringFieldIndex{Field: "TagID"},
						}},
					},
					"contact": fieldIndex("contact", "ContactID"),
				},
			},
			tableScoreHistory: {
				Name: tableScoreHistory,
				Indexes: map[string]*memdb.IndexSchema{
					"id":      idIndex(),
					"contact": fieldIndex("contact", "ContactID"),
				},
			},
			tableTemplates: {
				Name:    tableTemplates,
				Indexes: map[string]*memdb.IndexSchema{"id": idIndex()},
			},
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					"id":   idIndex(),
					"role": fieldIndex("role", "Role"),
				},
			},
			tableNotifications: {
				Name: tableNotifications,
				Indexes: map[string]*memdb.IndexSchema{
					"id":   idIndex(),
					"user": fieldIndex("user", "UserID"),
				},
			},
		},
	}
}

// Persistence keeps every record in a go-memdb database. Records are copied on the way in
// and out so callers never share memory with the store.
type Persistence struct {
	db *memdb.MemDB

	workflows   *WorkflowRepository
	enrollments *EnrollmentRepository
	executions  *ExecutionRepository
	jobs        *JobRepository
	contacts    *ContactRepository
	tags        *TagRepository
	scores      *ScoreRepository
	templates   *TemplateRepository
	users       *UserRepository
}

func NewPersistence() (*Persistence, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memory database: %w", err)
	}

	return &Persistence{
		db:          db,
		workflows:   &WorkflowRepository{db: db},
		enrollments: &EnrollmentRepository{db: db},
		executions:  &ExecutionRepository{db: db},
		jobs:        &JobRepository{db: db},
		contacts:    &ContactRepository{db: db},
		tags:        &TagRepository{db: db},
		scores:      &ScoreRepository{db: db},
		templates:   &TemplateRepository{db: db},
		users:       &UserRepository{db: db},
	}, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }

func (p *Persistence) Close(_ context.Context) error { return nil }

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository     { return p.workflows }
func (p *Persistence) EnrollmentRepository() persistence.EnrollmentRepository { return p.enrollments }
func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository   { return p.executions }
func (p *Persistence) JobRepository() persistence.JobRepository               { return p.jobs }
func (p *Persistence) ContactRepository() persistence.ContactRepository       { return p.contacts }
func (p *Persistence) TagRepository() persistence.TagRepository               { return p.tags }
func (p *Persistence) ScoreRepository() persistence.ScoreRepository           { return p.scores }
func (p *Persistence) TemplateRepository() persistence.TemplateRepository     { return p.templates }
func (p *Persistence) UserRepository() persistence.UserRepository             { return p.users }

// collect drains an iterator into typed copies.
func collect[T any](it memdb.ResultIterator, clone func(*T) *T) []*T {
	items := make([]*T, 0)

	for obj := it.Next(); obj != nil; obj = it.Next() {
		items = append(items, clone(obj.(*T)))
	}

	return items
}

func insert(db *memdb.MemDB, table string, obj any) error {
	txn := db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(table, obj); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	txn.Commit()

	return nil
}
