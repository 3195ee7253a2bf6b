package shopify

import "strings"

const gidPrefix = "gid://shopify/"

// All identifiers sent to the platform go through renderGID. Values that are
// already global ids pass through untouched.
func renderGID(resource, id string) string {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, gidPrefix) {
		return trimmed
	}
	return gidPrefix + resource + "/" + trimmed
}

func OrderGID(ref string) string {
	return renderGID("Order", ref)
}

func FulfillmentOrderGID(id string) string {
	return renderGID("FulfillmentOrder", id)
}

func CalculatedOrderGID(id string) string {
	return renderGID("CalculatedOrder", id)
}

func CalculatedLineItemGID(id string) string {
	return renderGID("CalculatedLineItem", id)
}

// LegacyID returns the trailing numeric part of a global id, or the input
// unchanged when it is not a global id.
func LegacyID(gid string) string {
	trimmed := strings.TrimSpace(gid)
	if !strings.HasPrefix(trimmed, gidPrefix) {
		return trimmed
	}
	rest := strings.TrimPrefix(trimmed, gidPrefix)
	if idx := strings.Index(rest, "?"); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.LastIndex(rest, "/"); idx >= 0 {
		return rest[idx+1:]
	}
	return rest
}
