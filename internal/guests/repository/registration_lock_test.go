package repository

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestReleaseFilter_MatchesHolderToken(t *testing.T) {
	got := releaseFilter("e1", "tok-1")
	want := bson.M{"_id": "e1", "token": "tok-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("releaseFilter() = %v, want %v", got, want)
	}
}
