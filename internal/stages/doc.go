// Package stages implements the pipeline stage handlers: analysis, audio
// enhancement, and the draft and final renders.
//
// Each handler satisfies stage.Handler. Handlers only mutate the working copy
// of the job they are handed; the workflow manager owns every commit to the
// job store and turns returned errors into FAILED snapshots.
package stages
