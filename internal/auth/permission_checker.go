package auth

// Authorize decides allow/deny for a requested set of actions and
// resources against the permissions granted through the caller's role.
// A single granted pair whose action appears in the requested actions
// AND whose resource appears in the requested resources is sufficient;
// there is no requirement that every cross combination be granted.
func Authorize(granted []GrantedPermission, actions, resources []string) bool {
	if len(granted) == 0 || len(actions) == 0 || len(resources) == 0 {
		return false
	}

	actionSet := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		actionSet[a] = struct{}{}
	}
	resourceSet := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		resourceSet[r] = struct{}{}
	}

	for _, p := range granted {
		if _, ok := actionSet[p.Action]; !ok {
			continue
		}
		if _, ok := resourceSet[p.Resource]; ok {
			return true
		}
	}
	return false
}
