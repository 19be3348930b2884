package replicaset

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	adminDB        = "admin"
	connectTimeout = 10 * time.Second
)

// Commander runs administrative commands against the local database and
// decodes the reply document into result.
type Commander interface {
	RunCommand(ctx context.Context, cmd bson.D, result interface{}) error
}

// MongoCommander is a Commander backed by a direct connection to one
// database process, which works before the replica set is initiated.
type MongoCommander struct {
	client *mongo.Client
}

// Dial connects to the database at uri
func Dial(ctx context.Context, uri string) (*MongoCommander, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetDirect(true).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", uri)
	}
	return &MongoCommander{client: client}, nil
}

// RunCommand implements Commander
func (m *MongoCommander) RunCommand(ctx context.Context, cmd bson.D, result interface{}) error {
	res := m.client.Database(adminDB).RunCommand(ctx, cmd)
	if err := res.Err(); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return res.Decode(result)
}

// Close disconnects from the database
func (m *MongoCommander) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
