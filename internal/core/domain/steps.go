package domain

// StepType is the discriminator of a step record.
type StepType string

const (
	StepBuildRunStarted StepType = "BUILD_RUN_STARTED"
	StepPlanPrepared    StepType = "PLAN_PREPARED"
	StepTaskStorePut    StepType = "TASK_STORE_PUT"
	StepTaskStoreGet    StepType = "TASK_STORE_GET"
	StepTestEnded       StepType = "TEST_ENDED"
	StepAssetPublished  StepType = "ASSET_PUBLISHED"
	StepBuildRunEnded   StepType = "BUILD_RUN_ENDED"
)

// Step is one record of the build run step log.
type Step interface {
	StepType() StepType
}

// StepProcessor receives every step emitted during a run, in order.
type StepProcessor func(Step)

// BuildRunStarted opens a run.
type BuildRunStarted struct {
	BuildRunID string
}

// PlanPrepared lists the tasks selected for the run.
type PlanPrepared struct {
	Tasks []TaskName
}

// TaskStorePut records outputs saved to the task store.
type TaskStorePut struct {
	TaskName    TaskName
	BlobID      BlobID
	Fingerprint Fingerprint
	Files       []string
}

// TaskStoreGet records outputs restored from the task store.
type TaskStoreGet struct {
	TaskName    TaskName
	BlobID      BlobID
	Fingerprint Fingerprint
	Files       []string
}

// TestEnded records the verdict of a test task. Repo-protocol implementations may report it;
// the scheduler never does.
type TestEnded struct {
	TaskName TaskName
	Verdict  Verdict
}

// AssetPublished records an uploaded asset.
type AssetPublished struct {
	TaskName    TaskName
	Fingerprint Fingerprint
	Path        string
	Key         string
}

// BuildRunEnded closes a run.
type BuildRunEnded struct {
	Verdict Verdict
}

func (BuildRunStarted) StepType() StepType { return StepBuildRunStarted }
func (PlanPrepared) StepType() StepType    { return StepPlanPrepared }
func (TaskStorePut) StepType() StepType    { return StepTaskStorePut }
func (TaskStoreGet) StepType() StepType    { return StepTaskStoreGet }
func (TestEnded) StepType() StepType       { return StepTestEnded }
func (AssetPublished) StepType() StepType  { return StepAssetPublished }
func (BuildRunEnded) StepType() StepType   { return StepBuildRunEnded }
