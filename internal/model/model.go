// Package model defines domain entities used by services and repositories.
package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// NoTargetSelectors is stored as the target of page notes.
const NoTargetSelectors = "null"

// WorldGroup is the name of the default public group.
const WorldGroup = "__world__"

// ResponseStatus tracks whether a document context was dispatched downstream.
type ResponseStatus string

const (
	ResponseInPreparation ResponseStatus = "IN_PREPARATION"
	ResponseSent          ResponseStatus = "SENT"
)

// User is a locally known account. Display attributes live in UserDetails.
type User struct {
	ID        uuid.UUID
	Login     string // unique
	CreatedAt time.Time
}

// UserDetails is the profile payload returned by the external user directory.
type UserDetails struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Entity      string `json:"entity"`
}

// Group scopes visibility of shared annotations.
type Group struct {
	ID          uuid.UUID
	Name        string // unique
	DisplayName string
	Public      bool
}

// IsWorld reports whether g is the default public group.
func (g Group) IsWorld() bool { return g.Name == WorldGroup }

// Document is an annotated resource identified by its URI.
type Document struct {
	ID        uuid.UUID
	URI       string // unique
	Title     string
	CreatedAt time.Time
}

// Metadata links a document to a group and an issuing authority.
type Metadata struct {
	ID             uuid.UUID
	Document       Document
	Group          Group
	Authority      string
	ResponseStatus ResponseStatus
}

// IsSent reports whether the document context was dispatched downstream.
func (m Metadata) IsSent() bool { return m.ResponseStatus == ResponseSent }

// Tag is a label attached to an annotation.
type Tag struct {
	Name         string
	AnnotationID string
}

// Annotation is a highlight, comment, suggestion or page note.
type Annotation struct {
	ID              string
	Owner           User
	Metadata        Metadata
	Created         time.Time
	Updated         time.Time
	TargetSelectors string
	Text            string
	Shared          bool
	References      []string
	Status          Status
	Tags            []Tag
	Version         int64 // compare-and-set guard, bumped on every write

	// OwnerDetails is filled from the user directory when available.
	OwnerDetails *UserDetails
}

// Group returns the group the annotation is scoped to.
func (a *Annotation) Group() Group { return a.Metadata.Group }

// IsPageNote reports whether the annotation has no target.
func (a *Annotation) IsPageNote() bool {
	t := strings.TrimSpace(a.TargetSelectors)
	return t == "" || t == NoTargetSelectors
}

// IsHighlight reports whether the annotation marks a passage without text.
func (a *Annotation) IsHighlight() bool {
	return strings.TrimSpace(a.Text) == "" && !a.IsPageNote()
}

// IsReply reports whether the annotation answers another one.
func (a *Annotation) IsReply() bool { return len(a.References) > 0 }

// TagNames returns tag names in order.
func (a *Annotation) TagNames() []string {
	out := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		out = append(out, t.Name)
	}
	return out
}

// Actor identifies the caller of a service operation.
type Actor struct {
	Login     string
	Authority string
}

// IsZero reports whether no caller was authenticated.
func (a Actor) IsZero() bool { return a.Login == "" }

// AnnotationInput is a create/update intent coming from the transport.
type AnnotationInput struct {
	ID              string // optional on create
	URI             string
	Title           string
	Group           string // empty means WorldGroup
	TargetSelectors string
	Text            string
	Shared          bool
	References      []string
	Tags            []string
}
