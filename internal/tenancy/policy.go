package tenancy

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"clinicore.org/internal/auth"
)

// Action identifies the kind of access being decided.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// PayloadCabinetField is the payload key carrying a record's cabinet id.
const PayloadCabinetField = "cabinet"

// AccessRequest describes one route invocation for the policy. CabinetID
// comes from the context slot the middleware populated; the policy never
// re-derives it.
type AccessRequest struct {
	Principal  *auth.Principal
	CabinetID  int64
	HasCabinet bool
	Resource   string
	DocumentID string
	Action     Action
	Payload    map[string]any
}

// Policy decides per-route access for tenant-scoped resources. It runs
// strictly downstream of the authentication middleware and trusts only the
// cabinet id that stage resolved.
type Policy struct {
	links    LinkStore
	registry *Registry
}

// NewPolicy constructs the policy.
func NewPolicy(links LinkStore, registry *Registry) *Policy {
	return &Policy{links: links, registry: registry}
}

// Allow returns the access decision. A false result maps to 403 (or 401
// when unauthenticated) at the transport layer. The single side effect is
// the create-time cabinet auto-assignment into req.Payload.
func (p *Policy) Allow(ctx context.Context, req *AccessRequest) (bool, error) {
	// Public route: enforcement, if any, belongs elsewhere.
	if req.Principal == nil {
		return true, nil
	}
	if req.Principal.IsSuperAdmin() {
		return true, nil
	}
	if !req.HasCabinet {
		return false, nil
	}

	if req.Resource == CabinetResource {
		return p.allowCabinet(ctx, req)
	}

	if _, registered := p.registry.ByResource(req.Resource); registered {
		return p.allowScoped(ctx, req)
	}
	return true, nil
}

// allowCabinet guards single-resource access to the cabinets collection,
// keyed by logical document id.
func (p *Policy) allowCabinet(ctx context.Context, req *AccessRequest) (bool, error) {
	if req.DocumentID == "" {
		return true, nil
	}
	published, err := p.links.PublishedCabinet(ctx, req.DocumentID)
	if err != nil {
		return false, fmt.Errorf("cabinet %s: %w", req.DocumentID, err)
	}
	if published == nil {
		return false, nil
	}
	return published.ID == req.CabinetID, nil
}

func (p *Policy) allowScoped(ctx context.Context, req *AccessRequest) (bool, error) {
	entry, _ := p.registry.ByResource(req.Resource)

	switch req.Action {
	case ActionRead, ActionUpdate, ActionDelete:
		if req.DocumentID != "" {
			owner, ok, err := p.links.ResourceCabinet(ctx, entry.Table(), req.DocumentID)
			if err != nil {
				return false, fmt.Errorf("%s %s: %w", req.Resource, req.DocumentID, err)
			}
			// A missing row denies exactly like a foreign row, so
			// existence never leaks across cabinets.
			if !ok || owner != req.CabinetID {
				return false, nil
			}
		}
	}

	switch req.Action {
	case ActionCreate:
		if claimed, present := payloadCabinetID(req.Payload); present {
			if claimed != req.CabinetID {
				return false, nil
			}
		} else if req.Payload != nil {
			req.Payload[PayloadCabinetField] = req.CabinetID
		}
	case ActionUpdate:
		if claimed, present := payloadCabinetID(req.Payload); present && claimed != req.CabinetID {
			return false, nil
		}
	}
	return true, nil
}

// payloadCabinetID extracts the cabinet id a payload claims, if any.
// Unparseable values report present with id zero, which never matches a
// real cabinet and therefore denies.
func payloadCabinetID(payload map[string]any) (int64, bool) {
	if payload == nil {
		return 0, false
	}
	v, ok := payload[PayloadCabinetField]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case json.Number:
		id, err := t.Int64()
		if err != nil {
			return 0, true
		}
		return id, true
	case string:
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, true
		}
		return id, true
	default:
		return 0, true
	}
}
