package team

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/daap14/taskhub/internal/database"
)

const (
	collectionName = "teams"
	schemaVersion  = 1
)

// teamDocument is the stored shape of a Team.
type teamDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	SchemaVersion int                `bson:"schema_version"`
	Name          string             `bson:"name"`
	Description   string             `bson:"description"`
	LeaderID      string             `bson:"leader_id"`
	MemberIDs     []string           `bson:"member_ids"`
	CreatedAt     time.Time          `bson:"created_at"`
}

func newDocument(t *Team) teamDocument {
	members := t.MemberIDs
	if members == nil {
		members = []string{}
	}
	return teamDocument{
		ID:            t.ID,
		SchemaVersion: schemaVersion,
		Name:          t.Name,
		Description:   t.Description,
		LeaderID:      t.LeaderID,
		MemberIDs:     members,
		CreatedAt:     t.CreatedAt,
	}
}

func (d teamDocument) toTeam() (*Team, error) {
	if err := database.CheckSchemaVersion(collectionName, d.SchemaVersion, schemaVersion); err != nil {
		return nil, err
	}

	members := d.MemberIDs
	if members == nil {
		members = []string{}
	}
	return &Team{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		LeaderID:    d.LeaderID,
		MemberIDs:   members,
		CreatedAt:   d.CreatedAt,
	}, nil
}
