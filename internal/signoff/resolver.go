package signoff

type labelSet map[string]struct{}

func newLabelSet(names []string) labelSet {
	set := make(labelSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (s labelSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// autoManaged reports whether a previous pass granted an auto-signoff. The
// qualification labels are the only provenance signal: an operator who adds
// one by hand is indistinguishable from this engine.
func (s labelSet) autoManaged() bool {
	return s.has(string(ArmAutoSignedOffIncrementalTSP)) || s.has(string(ArmAutoSignedOffTrivial))
}

// resolve maps the qualifications and current labels to one action per
// managed label.
//
// Any qualified path grants ArmSignedOff and sets each path label from its own
// qualification. Otherwise nothing changes unless a previous pass auto-granted:
// then conclusively disqualified path labels are removed, and ArmSignedOff is
// removed only once neither path is still unknown.
func resolve(q qualifications, labels labelSet) map[ManagedLabel]LabelAction {
	actions := map[ManagedLabel]LabelAction{
		ArmSignedOff:                   ActionNone,
		ArmAutoSignedOffIncrementalTSP: ActionNone,
		ArmAutoSignedOffTrivial:        ActionNone,
	}

	if q.incremental == Qualified || q.trivial == Qualified {
		actions[ArmSignedOff] = ActionAdd
		actions[ArmAutoSignedOffIncrementalTSP] = pathAction(q.incremental)
		actions[ArmAutoSignedOffTrivial] = pathAction(q.trivial)
		return actions
	}

	if !labels.autoManaged() {
		return actions
	}

	actions[ArmAutoSignedOffIncrementalTSP] = pathAction(q.incremental)
	actions[ArmAutoSignedOffTrivial] = pathAction(q.trivial)
	if q.incremental == Disqualified && q.trivial == Disqualified {
		actions[ArmSignedOff] = ActionRemove
	}
	return actions
}

func pathAction(q Qualification) LabelAction {
	switch q {
	case Qualified:
		return ActionAdd
	case Disqualified:
		return ActionRemove
	default:
		return ActionNone
	}
}
