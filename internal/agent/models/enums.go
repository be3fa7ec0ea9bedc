package models

import "fmt"

// SyncStatus is the delivery state of an evidence record.
//
// Transitions are monotone except for the single backward edge
// uploading → pending taken on a transient upload failure. synced is
// terminal and immutable; failed is terminal until an explicit manual reset.
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusUploading SyncStatus = "uploading"
	SyncStatusSynced    SyncStatus = "synced"
	SyncStatusFailed    SyncStatus = "failed"
)

// PhotoStage classifies when in the task the photo was taken.
// The empty value means the stage was not recorded.
type PhotoStage string

const (
	PhotoStageNone   PhotoStage = ""
	PhotoStageBefore PhotoStage = "before"
	PhotoStageDuring PhotoStage = "during"
	PhotoStageAfter  PhotoStage = "after"
)

// QueueItemType identifies which backend collection a queued mutation targets.
type QueueItemType string

const (
	QueueItemEvidence QueueItemType = "evidence"
	QueueItemJob      QueueItemType = "job"
	QueueItemTask     QueueItemType = "task"
)

// QueueAction is the mutation verb carried by a sync queue item.
type QueueAction string

const (
	QueueActionCreate QueueAction = "create"
	QueueActionUpdate QueueAction = "update"
	QueueActionDelete QueueAction = "delete"
)

var (
	syncStatuses = map[SyncStatus]struct{}{
		SyncStatusPending:   {},
		SyncStatusUploading: {},
		SyncStatusSynced:    {},
		SyncStatusFailed:    {},
	}
	photoStages = map[PhotoStage]struct{}{
		PhotoStageNone:   {},
		PhotoStageBefore: {},
		PhotoStageDuring: {},
		PhotoStageAfter:  {},
	}
	queueItemTypes = map[QueueItemType]struct{}{
		QueueItemEvidence: {},
		QueueItemJob:      {},
		QueueItemTask:     {},
	}
	queueActions = map[QueueAction]struct{}{
		QueueActionCreate: {},
		QueueActionUpdate: {},
		QueueActionDelete: {},
	}
)

// ParseSyncStatus validates a stored or wire value against the known set.
func ParseSyncStatus(s string) (SyncStatus, error) {
	v := SyncStatus(s)
	if _, ok := syncStatuses[v]; !ok {
		return "", fmt.Errorf("unknown sync status %q", s)
	}
	return v, nil
}

// ParsePhotoStage validates a stored or wire value against the known set.
func ParsePhotoStage(s string) (PhotoStage, error) {
	v := PhotoStage(s)
	if _, ok := photoStages[v]; !ok {
		return "", fmt.Errorf("unknown photo stage %q", s)
	}
	return v, nil
}

// ParseQueueItemType validates a stored or wire value against the known set.
func ParseQueueItemType(s string) (QueueItemType, error) {
	v := QueueItemType(s)
	if _, ok := queueItemTypes[v]; !ok {
		return "", fmt.Errorf("unknown queue item type %q", s)
	}
	return v, nil
}

// ParseQueueAction validates a stored or wire value against the known set.
func ParseQueueAction(s string) (QueueAction, error) {
	v := QueueAction(s)
	if _, ok := queueActions[v]; !ok {
		return "", fmt.Errorf("unknown queue action %q", s)
	}
	return v, nil
}
