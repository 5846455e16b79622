package reconcile

// Classify derives the action label and update target for one record.
// It is pure: the input is returned as a copy with ActionRequired and
// UpdateTarget populated, nothing else is touched.
//
// Decision order is first-match-wins, presence taking priority over rate
// direction: a jurisdiction missing from a platform needs adding there
// regardless of which way its rate moved.
func Classify(rec ReportRecord) ReportRecord {
	switch {
	case rec.Presence == PresenceAPEXOnly:
		rec.UpdateTarget = AddToCOMMAND
		rec.ActionRequired = ActionAddToCOMMAND
	case rec.Presence == PresenceCOMMANDOnly:
		rec.UpdateTarget = AddToAPEX
		rec.ActionRequired = ActionAddToAPEX
	case rec.RateChange.IsPositive():
		rec.UpdateTarget = UpdateBoth
		rec.ActionRequired = ActionRateIncrease
	case rec.RateChange.IsNegative():
		rec.UpdateTarget = UpdateBoth
		rec.ActionRequired = ActionRateDecrease
	default:
		// Zero rate change on a BOTH record. FilterActionable removes these
		// before classification, so this branch should never be observed in
		// pipeline output; Run drops and reports the record if it is.
		rec.UpdateTarget = UpdateBoth
		rec.ActionRequired = ActionNoChange
	}
	return rec
}
