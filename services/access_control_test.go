package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quoteapi-server/models"
)

func TestAuthorizeDecisionTable(t *testing.T) {
	owner := models.Identity{UserID: 7}
	stranger := models.Identity{UserID: 9}
	admin := models.Identity{UserID: 2, IsAdmin: true}
	anonymous := models.Identity{}

	resource := func(visibility string) Resource {
		return Resource{Exists: true, Visibility: visibility, OwnerID: owner.UserID}
	}

	tests := []struct {
		name       string
		res        Resource
		caller     models.Identity
		allowed    bool
		wantStatus int
	}{
		{"missing resource anonymous", Resource{}, anonymous, false, 404},
		{"missing resource admin", Resource{}, admin, false, 404},
		{"public anonymous", resource(models.VisibilityPublic), anonymous, true, 0},
		{"public stranger", resource(models.VisibilityPublic), stranger, true, 0},
		{"restricted anonymous", resource(models.VisibilityRestricted), anonymous, false, 401},
		{"restricted stranger", resource(models.VisibilityRestricted), stranger, true, 0},
		{"restricted owner", resource(models.VisibilityRestricted), owner, true, 0},
		{"private anonymous", resource(models.VisibilityPrivate), anonymous, false, 403},
		{"private stranger", resource(models.VisibilityPrivate), stranger, false, 403},
		{"private owner", resource(models.VisibilityPrivate), owner, true, 0},
		{"private admin", resource(models.VisibilityPrivate), admin, true, 0},
		{"unrecognized tier stranger", resource("internal"), stranger, false, 403},
		{"unrecognized tier owner", resource("internal"), owner, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.res, tt.caller)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.wantStatus, d.Status)
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestAuthorizeHasNoAnonymousOwnerMatch(t *testing.T) {
	// OwnerID zero must never make an anonymous caller the owner.
	res := Resource{Exists: true, Visibility: models.VisibilityPrivate, OwnerID: 0}
	d := Authorize(res, models.Identity{})
	assert.False(t, d.Allowed)
	assert.Equal(t, 403, d.Status)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := Decision{Status: 401, Message: "需要登录或提供 API Key"}.Err()
	accessErr, ok := err.(*AccessError)
	if assert.True(t, ok) {
		assert.Equal(t, 401, accessErr.Status)
		assert.Equal(t, "需要登录或提供 API Key", accessErr.Message)
	}
}

func TestResourceAdapters(t *testing.T) {
	assert.False(t, EndpointResource(nil).Exists)
	assert.False(t, RepositoryResource(nil).Exists)

	ep := &models.Endpoint{ID: 1, UserID: 5, Visibility: models.VisibilityRestricted}
	res := EndpointResource(ep)
	assert.True(t, res.Exists)
	assert.Equal(t, models.VisibilityRestricted, res.Visibility)
	assert.Equal(t, int64(5), res.OwnerID)

	repo := &models.Repository{ID: 3, UserID: 8, Visibility: models.VisibilityPrivate}
	res = RepositoryResource(repo)
	assert.True(t, res.Exists)
	assert.Equal(t, models.VisibilityPrivate, res.Visibility)
	assert.Equal(t, int64(8), res.OwnerID)
}
