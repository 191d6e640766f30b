package services

import (
	"quoteapi-server/models"
)

// Resource is the visibility-bearing view of an endpoint or repository
// presented to the authorization gate.
type Resource struct {
	Exists     bool
	Visibility string
	OwnerID    int64
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Status  int
	Message string
}

var decisionAllow = Decision{Allowed: true}

// Authorize resolves caller identity and resource visibility into an
// allow/deny decision. The same gate guards endpoint runs and the quote
// repository API; it has no side effects.
//
//	missing resource      -> 404 for everyone
//	public                -> allow
//	restricted            -> 401 for anonymous, allow otherwise
//	private               -> 403 unless owner or admin
//	unrecognized tier     -> 403 for everyone
func Authorize(res Resource, caller models.Identity) Decision {
	if !res.Exists {
		return Decision{Status: 404, Message: "资源不存在"}
	}

	if caller.IsAdmin || (!caller.Anonymous() && caller.UserID == res.OwnerID) {
		return decisionAllow
	}

	switch res.Visibility {
	case models.VisibilityPublic:
		return decisionAllow
	case models.VisibilityRestricted:
		if caller.Anonymous() {
			return Decision{Status: 401, Message: "需要登录或提供 API Key"}
		}
		return decisionAllow
	case models.VisibilityPrivate:
		return Decision{Status: 403, Message: "无权访问此资源"}
	default:
		return Decision{Status: 403, Message: "无权访问此资源"}
	}
}

// EndpointResource adapts an endpoint row for the gate; a nil endpoint
// is a missing resource.
func EndpointResource(ep *models.Endpoint) Resource {
	if ep == nil {
		return Resource{}
	}
	return Resource{Exists: true, Visibility: ep.Visibility, OwnerID: ep.UserID}
}

// RepositoryResource adapts a repository row for the gate
func RepositoryResource(repo *models.Repository) Resource {
	if repo == nil {
		return Resource{}
	}
	return Resource{Exists: true, Visibility: repo.Visibility, OwnerID: repo.UserID}
}
