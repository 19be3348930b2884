package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNodeKey(t *testing.T) {
	assert.Equal(t, "10.0.0.1:27017", Node{"10.0.0.1", 27017}.Key())
	assert.Equal(t, "[fe80::1]:31000", Node{"fe80::1", 31000}.Key())
	assert.Equal(t, "a.example:1", ScalingEvent{Host: "a.example", Port: 1}.Key())
}

func TestMemberExtraFieldsRoundTrip(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id":      2,
		"host":     "db-2:27017",
		"priority": 0.5,
		"votes":    1,
	})
	assert.Nil(t, err)

	var m Member
	assert.Nil(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, 2, m.ID)
	assert.Equal(t, "db-2:27017", m.Host)
	assert.Equal(t, 0.5, m.Extra["priority"])

	out, err := bson.Marshal(m)
	assert.Nil(t, err)
	var back bson.M
	assert.Nil(t, bson.Unmarshal(out, &back))
	assert.Equal(t, 0.5, back["priority"])
	assert.Equal(t, "db-2:27017", back["host"])
}

func TestConfigExtraFieldsRoundTrip(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id":                                "rs0",
		"version":                            3,
		"writeConcernMajorityJournalDefault": true,
		"members":                            bson.A{bson.M{"_id": 0, "host": "db-0:27017", "votes": 1}},
	})
	assert.Nil(t, err)

	var cfg ReplicaSetConfig
	assert.Nil(t, bson.Unmarshal(raw, &cfg))
	assert.Equal(t, true, cfg.Extra["writeConcernMajorityJournalDefault"])

	out, err := bson.Marshal(cfg)
	assert.Nil(t, err)
	var back bson.M
	assert.Nil(t, bson.Unmarshal(out, &back))
	assert.Equal(t, true, back["writeConcernMajorityJournalDefault"])
}

func TestConfigJSONIncludesExtraFields(t *testing.T) {
	cfg := ReplicaSetConfig{
		ID:      "rs0",
		Version: 2,
		Members: []Member{{ID: 0, Host: "db-0:27017", Extra: bson.M{"priority": 2, "tags": bson.M{"dc": "east"}}}},
		Extra:   bson.M{"writeConcernMajorityJournalDefault": true, "_id": "ignored"},
	}
	data, err := json.Marshal(cfg)
	assert.Nil(t, err)

	var doc map[string]interface{}
	assert.Nil(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "rs0", doc["_id"])
	assert.Equal(t, true, doc["writeConcernMajorityJournalDefault"])
	member := doc["members"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(2), member["priority"])
	assert.Equal(t, "db-0:27017", member["host"])
	assert.Equal(t, map[string]interface{}{"dc": "east"}, member["tags"])

	var back ReplicaSetConfig
	assert.Nil(t, json.Unmarshal(data, &back))
	assert.Equal(t, "rs0", back.ID)
	assert.Equal(t, 2, back.Version)
	assert.Equal(t, true, back.Extra["writeConcernMajorityJournalDefault"])
	assert.Equal(t, float64(2), back.Members[0].Extra["priority"])
	assert.Equal(t, 0, back.Members[0].ID)
}

func TestMemberJSONWithoutExtra(t *testing.T) {
	data, err := json.Marshal(Member{ID: 1, Host: "db-1:27017"})
	assert.Nil(t, err)
	assert.JSONEq(t, `{"_id":1,"host":"db-1:27017"}`, string(data))

	var m Member
	assert.Nil(t, json.Unmarshal(data, &m))
	assert.Nil(t, m.Extra)
}
