package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	moveSchema := compile("move_request.schema.json")
	combatSchema := compile("combat_result.schema.json")
	endedSchema := compile("match_ended.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "player_id":"p1",
	  "player_name":"Alice",
	  "max_queue":64
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "player_id":"p1",
	  "match_id":"m-1",
	  "seed":1337,
	  "round":0,
	  "players":[{"player_id":"p1","name":"Alice","pos":{"x":0,"y":0},"health":100,"alive":true}],
	  "landmarks":[{"x":0,"y":0,"name":"Spawn Crossing","kind":"road"}],
	  "item_catalog":{"digest":"deadbeef","count":9},
	  "tuning":{
	    "auto_attack_tick_ms":1500,
	    "skill_tick_ms":3000,
	    "max_speed":300,
	    "attack_range":50,
	    "pickup_range":30,
	    "room_size":20,
	    "cell_size":1000
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var move any
	_ = json.Unmarshal([]byte(`{
	  "type":"MOVE_REQUEST",
	  "position":{"x":12.5,"y":-3.0},
	  "timestamp":1700000000000
	}`), &move)
	validate(moveSchema, move)

	var combat any
	_ = json.Unmarshal([]byte(`{
	  "type":"COMBAT_RESULT",
	  "attacker_id":"p1",
	  "target_id":"p2",
	  "damage":17,
	  "target_health":83,
	  "round":4
	}`), &combat)
	validate(combatSchema, combat)

	var ended any
	_ = json.Unmarshal([]byte(`{
	  "type":"MATCH_ENDED",
	  "match_id":"m-1",
	  "reason":"LAST_PLAYER_STANDING",
	  "winner_id":"p1",
	  "awards":[{"name":"most_kills","player_id":"p1"}],
	  "players":[{
	    "player_id":"p1","name":"Alice","rank":1,
	    "kills":3,"deaths":0,"damage_dealt":240,"damage_taken":55,
	    "items_collected":4,"rooms_explored":6,
	    "survived":true,"survival_seconds":212.4,
	    "combat_score":94.0,"exploration_score":44.0,"survival_score":95.8,
	    "overall_score":79.0
	  }]
	}`), &ended)
	validate(endedSchema, ended)
}
