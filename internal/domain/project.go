package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProjectFile is a single generated file within a project workspace
type ProjectFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Project represents a generated application workspace: a set of files
// plus the challenges derived from them
type Project struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Description string
	Files       []ProjectFile
	Challenges  []*Challenge
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// File returns the file with the given path, or nil
func (p *Project) File(path string) *ProjectFile {
	for i := range p.Files {
		if p.Files[i].Path == path {
			return &p.Files[i]
		}
	}
	return nil
}

// UpsertFile replaces the content of an existing file or appends a new one.
// Last write wins.
func (p *Project) UpsertFile(path, content string) {
	for i := range p.Files {
		if p.Files[i].Path == path {
			p.Files[i].Content = content
			p.UpdatedAt = time.Now()
			return
		}
	}
	p.Files = append(p.Files, ProjectFile{Path: path, Content: content})
	p.UpdatedAt = time.Now()
}

// Challenge returns the challenge with the given ID, or nil
func (p *Project) Challenge(id uuid.UUID) *Challenge {
	for _, c := range p.Challenges {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// CompletedCount returns how many challenges are completed
func (p *Project) CompletedCount() int {
	count := 0
	for _, c := range p.Challenges {
		if c.Completed() {
			count++
		}
	}
	return count
}

// Overview summarizes challenge progress, e.g. "2/5 challenges completed"
func (p *Project) Overview() string {
	return fmt.Sprintf("%d/%d challenges completed", p.CompletedCount(), len(p.Challenges))
}

// ActiveChallenge returns the first in-progress challenge, or the first
// not-started one when nothing is in progress. Returns nil when all
// challenges are completed.
func (p *Project) ActiveChallenge() *Challenge {
	for _, c := range p.Challenges {
		if c.Status == StatusInProgress {
			return c
		}
	}
	for _, c := range p.Challenges {
		if c.Status == StatusNotStarted {
			return c
		}
	}
	return nil
}
