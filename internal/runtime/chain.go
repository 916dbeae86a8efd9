package runtime

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// mapConcurrency bounds parallel map prompts.
const mapConcurrency = 4

const (
	stuffPrompt = `Use the following pieces of context to answer the question at the end. ` +
		`If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`

	mapPrompt = `Use the following portion of a long document to see if any of the text is relevant to answer the question.
Return any relevant text verbatim.
%s
Question: %s
Relevant text, if any:`

	combinePrompt = `Given the following extracted parts of a long document and a question, create a final answer.
If you don't know the answer, just say that you don't know. Don't try to make up an answer.

QUESTION: %s
=========
%s
=========
FINAL ANSWER:`
)

// answerChain turns a question and its retrieved chunks into answer text.
type answerChain func(ctx context.Context, model driven.AnswerModel, question string, chunks []*domain.Chunk) (string, error)

func chainFor(kind domain.AnswerChain) (answerChain, error) {
	switch kind {
	case domain.AnswerChainMapReduce:
		return mapReduce, nil
	case domain.AnswerChainStuff:
		return stuff, nil
	default:
		return nil, fmt.Errorf("answer chain %q: %w", kind, domain.ErrInvalidInput)
	}
}

// stuff puts every chunk into one prompt.
func stuff(ctx context.Context, model driven.AnswerModel, question string, chunks []*domain.Chunk) (string, error) {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	out, err := model.Generate(ctx, fmt.Sprintf(stuffPrompt, strings.Join(parts, "\n\n"), question))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// mapReduce extracts the relevant text from each chunk separately,
// then combines the extracts into one answer.
func mapReduce(ctx context.Context, model driven.AnswerModel, question string, chunks []*domain.Chunk) (string, error) {
	extracts := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mapConcurrency)
	for i, c := range chunks {
		g.Go(func() error {
			out, err := model.Generate(gctx, fmt.Sprintf(mapPrompt, c.Content, question))
			if err != nil {
				return fmt.Errorf("map chunk %d: %w", i, err)
			}
			extracts[i] = strings.TrimSpace(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	summaries := make([]string, 0, len(extracts))
	for i, e := range extracts {
		if e == "" {
			continue
		}
		summaries = append(summaries, fmt.Sprintf("Content: %s\nSource: %s", e, chunks[i].Source))
	}

	out, err := model.Generate(ctx, fmt.Sprintf(combinePrompt, question, strings.Join(summaries, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("combine: %w", err)
	}
	return strings.TrimSpace(out), nil
}
