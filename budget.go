package llmcontext

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTaskReserve is the token headroom kept for the model's own reply
	// scaffolding on top of task + index.
	DefaultTaskReserve = 500
	// DefaultMinChunks is the floor of chunks stages 1 and 2 keep regardless
	// of budget.
	DefaultMinChunks = 3

	// MaxDegradeStage is the terminal, index-only stage.
	MaxDegradeStage = 5
)

const truncationSuffix = "... [truncated]"

type budgetOptions struct {
	taskReserve int
	minChunks   int
}

type BudgetOption func(*budgetOptions)

// WithTaskReserve overrides the reserved token headroom.
func WithTaskReserve(tokens int) BudgetOption {
	return func(o *budgetOptions) {
		o.taskReserve = tokens
	}
}

// WithMinChunks overrides the chunk floor of stages 1 and 2.
func WithMinChunks(n int) BudgetOption {
	return func(o *budgetOptions) {
		o.minChunks = n
	}
}

// ApplyTokenBudget fits an envelope under maxTokens by walking a degrade
// ladder of increasingly aggressive stages. Each stage consumes the previous
// stage's survivors, never the original chunk set, so degradation compounds.
// The first stage whose result fits is finalized; stage 5 always fits. The
// function is total: it never fails and terminates in at most six passes.
func ApplyTokenBudget(envelope ContextEnvelope, maxTokens int, opts ...BudgetOption) ContextEnvelope {
	options := budgetOptions{taskReserve: DefaultTaskReserve, minChunks: DefaultMinChunks}
	for _, opt := range opts {
		opt(&options)
	}

	baseTokens := EstimateTokens(envelope.Task) + EstimateTokens(RenderContextIndex(envelope.Index)) + options.taskReserve
	contentBudget := maxTokens - baseTokens

	if contentBudget <= 0 {
		return degradeToIndexOnly(envelope, maxTokens, baseTokens)
	}

	if chunkTokens(envelope.Chunks) <= contentBudget {
		out := envelope
		out.Budget.MaxTokens = &maxTokens
		out.Budget.DegradeStage = 0
		return out
	}

	chunks := append([]ContextChunk(nil), envelope.Chunks...)
	cuts := append([]BudgetCut(nil), envelope.Budget.Cuts...)

	for stage := 1; stage <= 4; stage++ {
		switch stage {
		case 1:
			chunks, cuts = stageDropByRelevance(chunks, cuts, contentBudget, options.minChunks)
		case 2:
			chunks, cuts = stageSummarize(chunks, cuts, contentBudget, options.minChunks)
		case 3:
			chunks, cuts = stageTopK(chunks, cuts, options.minChunks)
		case 4:
			chunks, cuts = stageTruncate(chunks, cuts, contentBudget)
		}
		if chunkTokens(chunks) <= contentBudget {
			return finalizeStage(envelope, chunks, cuts, stage, maxTokens, baseTokens)
		}
	}

	return degradeToIndexOnly(envelope, maxTokens, baseTokens)
}

func chunkTokens(chunks []ContextChunk) int {
	total := 0
	for _, chunk := range chunks {
		total += chunk.TokenCount
	}
	return total
}

// rankByRelevance orders chunks by relevance score descending; a missing
// score ranks as zero. The sort is stable so equally scored chunks keep
// their input order.
func rankByRelevance(chunks []ContextChunk) []ContextChunk {
	ranked := append([]ContextChunk(nil), chunks...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return chunkRelevance(ranked[i]) > chunkRelevance(ranked[j])
	})
	return ranked
}

func chunkRelevance(chunk ContextChunk) float64 {
	if chunk.RelevanceScore == nil {
		return 0
	}
	return *chunk.RelevanceScore
}

// Stage 1: greedily keep the most relevant chunks that fit, with the
// minChunks floor. The floor is a floor, not a ceiling: it can leave the
// result over budget, in which case stage 2 runs on the survivors.
func stageDropByRelevance(chunks []ContextChunk, cuts []BudgetCut, budget, minChunks int) ([]ContextChunk, []BudgetCut) {
	keep := make(map[string]bool, len(chunks))
	cumulative := 0
	kept := 0
	for _, chunk := range rankByRelevance(chunks) {
		if cumulative+chunk.TokenCount <= budget || kept < minChunks {
			keep[chunk.Anchor] = true
			cumulative += chunk.TokenCount
			kept++
			continue
		}
		cuts = append(cuts, BudgetCut{Anchor: chunk.Anchor, Tokens: chunk.TokenCount, Reason: CutChunkRemoved})
	}

	var survivors []ContextChunk
	for _, chunk := range chunks {
		if keep[chunk.Anchor] {
			survivors = append(survivors, chunk)
		}
	}
	return survivors, cuts
}

// Stage 2: chunks that no longer fit in full are replaced by an extractive
// summary pointing at their anchor. The minChunks floor guarantees presence,
// not full text: within the floor a chunk survives at least as a summary,
// beyond it a chunk whose summary does not fit is dropped.
func stageSummarize(chunks []ContextChunk, cuts []BudgetCut, budget, minChunks int) ([]ContextChunk, []BudgetCut) {
	replacements := make(map[string]*ContextChunk, len(chunks))
	cumulative := 0
	kept := 0
	for _, chunk := range rankByRelevance(chunks) {
		if cumulative+chunk.TokenCount <= budget {
			keep := chunk
			replacements[chunk.Anchor] = &keep
			cumulative += chunk.TokenCount
			kept++
			continue
		}

		summary := ExtractiveSummary(chunk.Text, 3, 300)
		summarized := chunk
		summarized.Text = fmt.Sprintf("%s [full content: %s]", summary, chunk.Anchor)
		summarized.TokenCount = EstimateTokens(summarized.Text)
		summarized.Truncated = true

		if summary != "" && (cumulative+summarized.TokenCount <= budget || kept < minChunks) {
			replacements[chunk.Anchor] = &summarized
			cumulative += summarized.TokenCount
			kept++
			cuts = append(cuts, BudgetCut{Anchor: chunk.Anchor, Tokens: chunk.TokenCount, Reason: CutSummarized})
			continue
		}
		replacements[chunk.Anchor] = nil
		cuts = append(cuts, BudgetCut{Anchor: chunk.Anchor, Tokens: chunk.TokenCount, Reason: CutChunkRemoved})
	}

	var survivors []ContextChunk
	for _, chunk := range chunks {
		if replacement := replacements[chunk.Anchor]; replacement != nil {
			survivors = append(survivors, *replacement)
		}
	}
	return survivors, cuts
}

// Stage 3: keep only the top max(minChunks, 1) survivors by relevance.
func stageTopK(chunks []ContextChunk, cuts []BudgetCut, minChunks int) ([]ContextChunk, []BudgetCut) {
	k := minChunks
	if k < 1 {
		k = 1
	}

	ranked := rankByRelevance(chunks)
	keep := make(map[string]bool, k)
	for i, chunk := range ranked {
		if i < k {
			keep[chunk.Anchor] = true
			continue
		}
		cuts = append(cuts, BudgetCut{Anchor: chunk.Anchor, Tokens: chunk.TokenCount, Reason: CutStage3TopK})
	}

	var survivors []ContextChunk
	for _, chunk := range chunks {
		if keep[chunk.Anchor] {
			survivors = append(survivors, chunk)
		}
	}
	return survivors, cuts
}

// Stage 4: accumulate survivors in order until the budget runs out. The first
// overflowing chunk is truncated at a semantic boundary; everything after it
// is dropped.
func stageTruncate(chunks []ContextChunk, cuts []BudgetCut, budget int) ([]ContextChunk, []BudgetCut) {
	var survivors []ContextChunk
	cumulative := 0
	overflowed := false
	for _, chunk := range chunks {
		if !overflowed && cumulative+chunk.TokenCount <= budget {
			survivors = append(survivors, chunk)
			cumulative += chunk.TokenCount
			continue
		}

		if !overflowed {
			overflowed = true
			remaining := budget - cumulative
			if remaining > EstimateTokens(truncationSuffix) {
				truncated := chunk
				truncated.Text = TruncateAtBoundary(chunk.Text, remaining*4)
				truncated.TokenCount = EstimateTokens(truncated.Text)
				truncated.Truncated = true
				survivors = append(survivors, truncated)
				cumulative += truncated.TokenCount
				cuts = append(cuts, BudgetCut{Anchor: chunk.Anchor, Tokens: chunk.TokenCount, Reason: CutChunkTruncated})
				continue
			}
		}
		cuts = append(cuts, BudgetCut{Anchor: chunk.Anchor, Tokens: chunk.TokenCount, Reason: CutChunkRemoved})
	}
	return survivors, cuts
}

// finalizeStage rebuilds the envelope around the surviving chunks: excluded
// sources keep their index entry but lose content_included and gain a
// generated summary, so the model can still ask for them in a follow-up turn.
func finalizeStage(envelope ContextEnvelope, chunks []ContextChunk, cuts []BudgetCut, stage, maxTokens, baseTokens int) ContextEnvelope {
	surviving := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		if parsed, err := ParseAnchor(chunk.Anchor); err == nil {
			surviving[parsed.SourceID] = true
		}
	}

	index := make([]ContextIndexEntry, len(envelope.Index))
	copy(index, envelope.Index)
	for i := range index {
		if surviving[index[i].SourceID] {
			continue
		}
		index[i].ContentIncluded = false
		if index[i].Summary == nil {
			index[i].Summary = indexSummary(envelope.Sources, index[i].SourceID)
		}
	}

	out := envelope
	out.Index = index
	out.Chunks = chunks
	out.Budget = TokenBudgetState{
		MaxTokens:    &maxTokens,
		UsedTokens:   baseTokens + chunkTokens(chunks),
		DegradeStage: stage,
		Cuts:         cuts,
	}
	return out
}

// degradeToIndexOnly is stage 5: no chunks, no attachments, every index entry
// carries a best-effort summary.
func degradeToIndexOnly(envelope ContextEnvelope, maxTokens, baseTokens int) ContextEnvelope {
	cuts := append([]BudgetCut(nil), envelope.Budget.Cuts...)
	for _, chunk := range envelope.Chunks {
		cuts = append(cuts, BudgetCut{Anchor: chunk.Anchor, Tokens: chunk.TokenCount, Reason: CutStage5})
	}

	attachments := make([]AttachmentManifest, len(envelope.Attachments))
	copy(attachments, envelope.Attachments)
	for i := range attachments {
		attachments[i].Included = false
	}

	index := make([]ContextIndexEntry, len(envelope.Index))
	copy(index, envelope.Index)
	for i := range index {
		index[i].ContentIncluded = false
		if index[i].Summary == nil {
			index[i].Summary = indexSummary(envelope.Sources, index[i].SourceID)
		}
	}

	out := envelope
	out.Index = index
	out.Chunks = nil
	out.Attachments = attachments
	out.Budget = TokenBudgetState{
		MaxTokens:    &maxTokens,
		UsedTokens:   baseTokens,
		DegradeStage: MaxDegradeStage,
		Cuts:         cuts,
	}
	return out
}

func indexSummary(sources []Source, sourceID string) *string {
	for _, source := range sources {
		info := source.Info()
		if info == nil || info.SourceID != sourceID {
			continue
		}
		summary := ExtractiveSummary(sourceText(source), 2, 150)
		if summary == "" {
			return nil
		}
		return &summary
	}
	return nil
}

// sourceText flattens a source's text for summarization.
func sourceText(source Source) string {
	switch {
	case source.Webpage != nil:
		return source.Webpage.Markdown
	case source.PDF != nil:
		var parts []string
		for _, page := range source.PDF.Pages {
			if page.Text != nil {
				parts = append(parts, *page.Text)
			}
		}
		return strings.Join(parts, "\n\n")
	case source.Image != nil:
		if source.Image.AltText != nil {
			return *source.Image.AltText
		}
		return ""
	case source.Note != nil:
		return source.Note.Text
	case source.Chatlog != nil:
		return renderChatlog(source.Chatlog)
	default:
		return ""
	}
}

var sentenceBoundaryRe = regexp.MustCompile(`[.!?]+\s+`)

// ExtractiveSummary takes the first maxSentences sentences longer than 10
// characters, capped at maxChars. No model call; summaries stay deterministic.
func ExtractiveSummary(text string, maxSentences, maxChars int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	var sentences []string
	start := 0
	for _, m := range sentenceBoundaryRe.FindAllStringIndex(trimmed, -1) {
		sentences = append(sentences, strings.TrimSpace(trimmed[start:m[1]]))
		start = m[1]
	}
	if start < len(trimmed) {
		sentences = append(sentences, strings.TrimSpace(trimmed[start:]))
	}

	var picked []string
	for _, sentence := range sentences {
		if len(sentence) <= 10 {
			continue
		}
		picked = append(picked, sentence)
		if len(picked) >= maxSentences {
			break
		}
	}
	summary := strings.Join(picked, " ")
	if summary == "" {
		summary = trimmed
	}
	if len(summary) > maxChars {
		summary = strings.TrimSpace(cutAtRune(summary, maxChars))
	}
	return summary
}

// Boundary patterns TruncateAtBoundary prefers, strongest structure first:
// markdown headings, paragraph breaks, horizontal rules, PDF page markers,
// then sentence ends followed by a capitalized word.
var (
	headingBoundaryRe = regexp.MustCompile(`(?m)^#{1,6} `)
	paragraphBreakRe  = regexp.MustCompile(`\n\n`)
	horizontalRuleRe  = regexp.MustCompile(`(?m)^(?:---+|\*\*\*+)\s*$`)
	sentenceCapitalRe = regexp.MustCompile(`[.!?]\s+[A-Z]`)
)

// TruncateAtBoundary cuts text to at most maxChars including the
// "... [truncated]" suffix, preferring the latest semantic boundary at or
// before the limit. A boundary that recovers less than half the limit is
// rejected in favor of the nearest preceding space past the halfway point,
// and failing that a hard character cut.
func TruncateAtBoundary(text string, maxChars int) string {
	contentMax := maxChars - len(truncationSuffix)
	if contentMax <= 0 {
		return truncationSuffix
	}
	if len(text)+len(truncationSuffix) <= maxChars {
		return text + truncationSuffix
	}

	var offsets []int
	for _, re := range []*regexp.Regexp{headingBoundaryRe, paragraphBreakRe, horizontalRuleRe, pageMarkerRe} {
		for _, m := range re.FindAllStringIndex(text, -1) {
			offsets = append(offsets, m[0])
		}
	}
	for _, m := range sentenceCapitalRe.FindAllStringIndex(text, -1) {
		offsets = append(offsets, m[1]-1)
	}
	sort.Ints(offsets)

	cut := -1
	for _, offset := range offsets {
		if offset > contentMax {
			break
		}
		if offset > cut {
			cut = offset
		}
	}

	if cut < contentMax/2 {
		if space := strings.LastIndex(text[:contentMax], " "); space >= contentMax/2 {
			cut = space
		} else {
			cut = contentMax
		}
	}

	return strings.TrimRight(cutAtRune(text, cut), " \t\n") + truncationSuffix
}

// cutAtRune slices at most n bytes without splitting a UTF-8 sequence.
func cutAtRune(text string, n int) string {
	if n >= len(text) {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
