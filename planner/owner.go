package planner

// chooseOwner applies the owner-selection rule of spec.md §4.3: candidates
// are the services that can resolve parentType.fieldName (already
// `@override`/`@external` filtered by schema.ComposedSchema.Ownership); if
// parentType is an entity and currentService is itself a candidate, stay
// there (avoids an unnecessary jump back to a service we're already in);
// otherwise take the lexicographically smallest candidate, the stability
// rule the determinism contract (spec.md §5(i)) requires.
//
// Returns ("", nil) if no service owns the field at all — the caller
// surfaces this as the "no subgraph owns the field" abort (spec.md §7).
func (b *builder) chooseOwner(parentType, fieldName, currentService string) (string, []string) {
	candidates := b.cs.SortedOwners(parentType, fieldName)
	if len(candidates) == 0 {
		return "", nil
	}

	if b.cs.IsEntity(parentType) {
		for _, c := range candidates {
			if c == currentService {
				return currentService, candidates
			}
		}
	}

	return candidates[0], candidates
}
