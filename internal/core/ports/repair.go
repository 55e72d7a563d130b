package ports

import (
	"github.com/thushan/tabkeeper/internal/core/domain"
)

// RepairSession is one user-facing repair workflow. Exactly one of Confirm
// or Dismiss takes effect; later calls are ignored.
type RepairSession interface {
	// Tabs returns the erroring tabs as they are currently stored
	Tabs() domain.TabSettingsDictionary

	// Report returns the validation errors for those tabs
	Report() domain.ValidationReport

	// Confirm applies the corrected tabs. A tab whose filter list is empty
	// is deleted.
	Confirm(corrected domain.TabSettingsDictionary)

	// Dismiss closes the workflow without applying anything
	Dismiss()
}

// RepairCollaborator presents repair sessions to the user. Present must not
// block waiting for the user.
type RepairCollaborator interface {
	Present(session RepairSession)
}

// Notifier tells the user about conditions they need to acknowledge
type Notifier interface {
	// NotifyConfigReset reports that the stored tabs were corrupt and have
	// been replaced by defaults; backupKey locates the kept copy
	NotifyConfigReset(backupKey string, cause error)
}
