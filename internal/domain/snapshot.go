package domain

// Clone returns a deep copy so callers can mutate it without touching the original.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Version:     s.Version,
		Activities:  make([]Activity, len(s.Activities)),
		Units:       make([]Unit, len(s.Units)),
		Submissions: make([]ProofSubmission, len(s.Submissions)),
	}
	for i, a := range s.Activities {
		a.BonusPoints = clonePtr(a.BonusPoints)
		out.Activities[i] = a
	}
	copy(out.Units, s.Units)
	for i, sub := range s.Submissions {
		out.Submissions[i] = sub.Clone()
	}
	return out
}

// Clone returns a deep copy of the submission.
func (p ProofSubmission) Clone() ProofSubmission {
	p.Description = clonePtr(p.Description)
	p.AttachmentID = clonePtr(p.AttachmentID)
	p.SubmittedAt = clonePtr(p.SubmittedAt)
	p.ReviewedAt = clonePtr(p.ReviewedAt)
	p.ApprovedBasePoints = clonePtr(p.ApprovedBasePoints)
	p.ApprovedBonusPoints = clonePtr(p.ApprovedBonusPoints)
	if p.Review != nil {
		review := *p.Review
		review.AdjustedBasePoints = clonePtr(review.AdjustedBasePoints)
		review.AdjustedBonusPoints = clonePtr(review.AdjustedBonusPoints)
		p.Review = &review
	}
	return p
}

// Activity returns the activity with the given id.
func (s Snapshot) Activity(id string) (Activity, bool) {
	if i := s.activityIndex(id); i >= 0 {
		return s.Activities[i], true
	}
	return Activity{}, false
}

// Unit returns the unit with the given id.
func (s Snapshot) Unit(id string) (Unit, bool) {
	for _, u := range s.Units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// SubmissionFor returns the submission for the (activity, unit) key.
func (s Snapshot) SubmissionFor(activityID, unitID string) (ProofSubmission, bool) {
	if i := s.submissionIndexFor(activityID, unitID); i >= 0 {
		return s.Submissions[i], true
	}
	return ProofSubmission{}, false
}

func (s Snapshot) activityIndex(id string) int {
	for i := range s.Activities {
		if s.Activities[i].ID == id {
			return i
		}
	}
	return -1
}

func (s Snapshot) submissionIndex(id string) int {
	for i := range s.Submissions {
		if s.Submissions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s Snapshot) submissionIndexFor(activityID, unitID string) int {
	for i := range s.Submissions {
		if s.Submissions[i].ActivityID == activityID && s.Submissions[i].UnitID == unitID {
			return i
		}
	}
	return -1
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
