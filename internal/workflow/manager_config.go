package workflow

import "clipforge/internal/jobs"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// The analyzer forms the analysis phase; the remaining handlers form the
// render phase in order.
func (m *Manager) ConfigureStages(set StageSet) {
	timeouts := m.cfg.StageTimeouts()

	var analysis, render []pipelineStage
	if set.Analyzer != nil {
		analysis = append(analysis, pipelineStage{
			name:             "analyzer",
			handler:          set.Analyzer,
			processingStatus: jobs.StatusAnalyzing,
			doneStatus:       jobs.StatusAnalyzing,
			timeout:          timeouts.Analyze,
		})
	}
	if set.Enhancer != nil {
		render = append(render, pipelineStage{
			name:             "enhancer",
			handler:          set.Enhancer,
			processingStatus: jobs.StatusEnhancingAudio,
			doneStatus:       jobs.StatusEnhancingAudio,
			timeout:          timeouts.Enhance,
		})
	}
	if set.DraftRenderer != nil {
		render = append(render, pipelineStage{
			name:             "draft-renderer",
			handler:          set.DraftRenderer,
			processingStatus: jobs.StatusRenderingDraft,
			doneStatus:       jobs.StatusDraftReady,
			timeout:          timeouts.Draft,
		})
	}
	if set.FinalRenderer != nil {
		render = append(render, pipelineStage{
			name:             "final-renderer",
			handler:          set.FinalRenderer,
			processingStatus: jobs.StatusRenderingFinal,
			doneStatus:       jobs.StatusDone,
			timeout:          timeouts.Final,
		})
	}

	m.mu.Lock()
	m.analysisStages = analysis
	m.renderStages = render
	m.mu.Unlock()
}
