package auth

// Actor profiles carried in the "profile" claim.
const (
	ProfileBoard     = "board"
	ProfileCounselor = "counselor"
	ProfileMember    = "member"
)

// KnownProfile reports whether p is one of the supported profiles.
func KnownProfile(p string) bool {
	switch p {
	case ProfileBoard, ProfileCounselor, ProfileMember:
		return true
	}
	return false
}

// CanManage reports whether the actor may edit the activity catalogue and review proofs.
func CanManage(c *Claims) bool {
	return c != nil && c.Profile == ProfileBoard
}

// CanSubmitFor reports whether the actor may submit or withdraw proofs for unitID.
func CanSubmitFor(c *Claims, unitID string) bool {
	if c == nil || unitID == "" {
		return false
	}
	if c.Profile == ProfileBoard {
		return true
	}
	return KnownProfile(c.Profile) && c.UnitID == unitID
}

// VisibleUnit returns the unit an actor's dashboard is scoped to; board sees every unit.
func VisibleUnit(c *Claims) string {
	if c == nil || c.Profile == ProfileBoard {
		return ""
	}
	return c.UnitID
}
