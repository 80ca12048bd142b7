package storage

import (
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// chargeField names one merge-able column group of a charge.
type chargeField int

const (
	fieldPayee chargeField = iota
	fieldMemo
	fieldAmount
	fieldDate
	fieldApproved
	fieldRemoteCategory
	fieldCategory
	fieldSplits
)

// serverFields are owned by the ledger and always refreshed on pull.
var serverFields = []chargeField{fieldPayee, fieldMemo, fieldAmount, fieldDate, fieldApproved, fieldRemoteCategory}

// mergePolicy lists, per local status, which fields a pulled charge may overwrite.
// Category and splits are only taken from the ledger while no local decision exists.
var mergePolicy = map[model.SyncStatus][]chargeField{
	model.StatusSynced:          append(append([]chargeField{}, serverFields...), fieldCategory, fieldSplits),
	model.StatusLocallyModified: serverFields,
	model.StatusPendingPush:     serverFields,
}

// mergeRemote applies the fields of remote that the local status allows.
// Status and ModifiedAt always stay local. It reports whether anything changed.
//
// A synced charge that is categorized locally but arrives uncategorized keeps
// its category and is flagged as a conflict. The flag clears once the ledger
// categorizes the charge again.
func mergeRemote(local, remote model.Charge) (model.Charge, bool) {
	merged := local
	changed := false

	fields, ok := mergePolicy[local.Status]
	if !ok {
		// Unknown status: treat as a local decision
		fields = serverFields
	}

	if local.Status == model.StatusSynced {
		conflict := local.IsCategorized() && !remote.IsCategorized()
		if conflict {
			fields = serverFields
		}
		if merged.Conflict != conflict {
			merged.Conflict, changed = conflict, true
		}
	}

	for _, f := range fields {
		switch f {
		case fieldPayee:
			if merged.Payee != remote.Payee {
				merged.Payee, changed = remote.Payee, true
			}
		case fieldMemo:
			if merged.Memo != remote.Memo {
				merged.Memo, changed = remote.Memo, true
			}
		case fieldAmount:
			if merged.Amount != remote.Amount {
				merged.Amount, changed = remote.Amount, true
			}
		case fieldDate:
			if formatDate(merged.Date) != formatDate(remote.Date) {
				merged.Date, changed = remote.Date, true
			}
		case fieldApproved:
			if merged.Approved != remote.Approved {
				merged.Approved, changed = remote.Approved, true
			}
		case fieldRemoteCategory:
			if merged.RemoteCategoryID != remote.CategoryID {
				merged.RemoteCategoryID, changed = remote.CategoryID, true
			}
		case fieldCategory:
			if merged.CategoryID != remote.CategoryID {
				merged.CategoryID, changed = remote.CategoryID, true
			}
		case fieldSplits:
			if !sameSplits(merged.Splits, remote.Splits) {
				merged.Splits, changed = remote.Splits, true
			}
		}
	}

	return merged, changed
}

func sameSplits(a, b []model.Split) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Amount != b[i].Amount || a[i].CategoryID != b[i].CategoryID || a[i].Memo != b[i].Memo {
			return false
		}
		if a[i].ID != "" && b[i].ID != "" && a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
