package requestdata

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRequestDataRoundTrip(t *testing.T) {
	rd := &RequestData{OrganizationID: uuid.New(), ActorID: uuid.New()}
	ctx := WithRequestData(context.Background(), rd)
	if got := GetRequestData(ctx); got != rd {
		t.Fatalf("got %+v, want %+v", got, rd)
	}
}

func TestGetRequestData_MissingReturnsNil(t *testing.T) {
	if got := GetRequestData(context.Background()); got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

// The key must be package-private: another package storing a value under its
// own empty-struct key must not collide with ours.
func TestRequestDataKeyDoesNotCollide(t *testing.T) {
	type foreignKey struct{}
	ctx := context.WithValue(context.Background(), foreignKey{}, "not request data")
	if got := GetRequestData(ctx); got != nil {
		t.Fatalf("foreign key leaked into request data: %+v", got)
	}
}
