// Package deleter implements cascade deletion for the three artifact tiers.
// Every delete has a preview twin that computes the same impact without
// touching anything, so the CLI can show what a delete will take with it.
package deleter

import (
	"context"
	"fmt"
	"os"

	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/vaultpath"
)

type Deleter struct {
	store storage.Store
	paths *vaultpath.Paths
	log   logging.Logger
}

func New(store storage.Store, paths *vaultpath.Paths, log logging.Logger) *Deleter {
	if log == nil {
		log = logging.Nop()
	}
	return &Deleter{store: store, paths: paths, log: log}
}

// PreviewDocument reports what DeleteDocument would remove.
func (d *Deleter) PreviewDocument(ctx context.Context, docID string) (*types.DeleteImpact, error) {
	return d.documentImpact(ctx, docID)
}

// DeleteDocument removes a document and everything derived from it: all
// summary versions, their embeddings, reviews, cluster memberships, and the
// shadow files. Insights the summaries fed into survive; only the membership
// links go. The source file itself is never touched.
func (d *Deleter) DeleteDocument(ctx context.Context, docID string) (*types.DeleteImpact, error) {
	impact, err := d.documentImpact(ctx, docID)
	if err != nil {
		return nil, err
	}

	summaries, err := d.store.SummariesForSource(ctx, docID)
	if err != nil {
		return nil, err
	}
	ids := summaryIDs(summaries)

	d.removeFiles(impact.Files)
	for _, id := range ids {
		if err := d.store.DeleteClusterMembersForSummary(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := d.store.DeleteEmbeddings(ctx, ids); err != nil {
		return nil, err
	}
	if err := d.store.DeleteReviewsForTargets(ctx, ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := d.store.DeleteSummaryRow(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := d.store.DeleteDocumentRow(ctx, docID); err != nil {
		return nil, err
	}
	d.log.Logf("deleted document %s (%d versions)", docID, len(ids))
	return impact, nil
}

// PreviewSummary reports what DeleteSummary would remove.
func (d *Deleter) PreviewSummary(ctx context.Context, summaryID string) (*types.DeleteImpact, error) {
	return d.summaryImpact(ctx, summaryID)
}

// DeleteSummary removes one summary version with its embedding, reviews, and
// cluster memberships. Shadow files are only removed when the deleted
// version is the active one; superseded versions have no file presence.
func (d *Deleter) DeleteSummary(ctx context.Context, summaryID string) (*types.DeleteImpact, error) {
	impact, err := d.summaryImpact(ctx, summaryID)
	if err != nil {
		return nil, err
	}

	d.removeFiles(impact.Files)
	if err := d.store.DeleteClusterMembersForSummary(ctx, summaryID); err != nil {
		return nil, err
	}
	if err := d.store.DeleteEmbeddings(ctx, []string{summaryID}); err != nil {
		return nil, err
	}
	if err := d.store.DeleteReviewsForTargets(ctx, []string{summaryID}); err != nil {
		return nil, err
	}
	if err := d.store.DeleteSummaryRow(ctx, summaryID); err != nil {
		return nil, err
	}
	d.log.Logf("deleted summary %s", summaryID)
	return impact, nil
}

// PreviewInsight reports what DeleteInsight would remove.
func (d *Deleter) PreviewInsight(ctx context.Context, insightID string) (*types.DeleteImpact, error) {
	return d.insightImpact(ctx, insightID)
}

// DeleteInsight removes an insight, its embedding, reviews, membership rows,
// and its files. Member summaries become unclustered again and are eligible
// for the next sweep.
func (d *Deleter) DeleteInsight(ctx context.Context, insightID string) (*types.DeleteImpact, error) {
	impact, err := d.insightImpact(ctx, insightID)
	if err != nil {
		return nil, err
	}

	d.removeFiles(impact.Files)
	if err := d.store.DeleteClusterMembersForInsight(ctx, insightID); err != nil {
		return nil, err
	}
	if err := d.store.DeleteEmbeddings(ctx, []string{insightID}); err != nil {
		return nil, err
	}
	if err := d.store.DeleteReviewsForTargets(ctx, []string{insightID}); err != nil {
		return nil, err
	}
	if err := d.store.DeleteInsightRow(ctx, insightID); err != nil {
		return nil, err
	}
	d.log.Logf("deleted insight %s", insightID)
	return impact, nil
}

func (d *Deleter) documentImpact(ctx context.Context, docID string) (*types.DeleteImpact, error) {
	doc, err := d.store.DocumentByID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", docID, err)
	}
	summaries, err := d.store.SummariesForSource(ctx, docID)
	if err != nil {
		return nil, err
	}
	ids := summaryIDs(summaries)

	impact := &types.DeleteImpact{Documents: 1, Summaries: len(ids)}
	if impact.Embeddings, err = d.store.CountEmbeddingsFor(ctx, ids); err != nil {
		return nil, err
	}
	if impact.Reviews, err = d.store.CountReviewsFor(ctx, ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		insights, err := d.store.InsightIDsForSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		impact.ClusterMembers += len(insights)
	}

	shadowPath := d.paths.L1Path(doc.Path)
	impact.Files = existingFiles(shadowPath, vaultpath.ReviewPath(shadowPath))
	return impact, nil
}

func (d *Deleter) summaryImpact(ctx context.Context, summaryID string) (*types.DeleteImpact, error) {
	sv, err := d.store.SummaryByID(ctx, summaryID)
	if err != nil {
		return nil, fmt.Errorf("load summary %s: %w", summaryID, err)
	}
	impact := &types.DeleteImpact{Summaries: 1}
	if impact.Embeddings, err = d.store.CountEmbeddingsFor(ctx, []string{summaryID}); err != nil {
		return nil, err
	}
	if impact.Reviews, err = d.store.CountReviewsFor(ctx, []string{summaryID}); err != nil {
		return nil, err
	}
	insights, err := d.store.InsightIDsForSummary(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	impact.ClusterMembers = len(insights)

	if sv.Status == types.StatusActive {
		if doc, err := d.store.DocumentByID(ctx, sv.SourceID); err == nil {
			shadowPath := d.paths.L1Path(doc.Path)
			impact.Files = existingFiles(shadowPath, vaultpath.ReviewPath(shadowPath))
		}
	}
	return impact, nil
}

func (d *Deleter) insightImpact(ctx context.Context, insightID string) (*types.DeleteImpact, error) {
	ins, err := d.store.InsightByID(ctx, insightID)
	if err != nil {
		return nil, fmt.Errorf("load insight %s: %w", insightID, err)
	}
	impact := &types.DeleteImpact{Insights: 1}
	if impact.Embeddings, err = d.store.CountEmbeddingsFor(ctx, []string{insightID}); err != nil {
		return nil, err
	}
	if impact.Reviews, err = d.store.CountReviewsFor(ctx, []string{insightID}); err != nil {
		return nil, err
	}
	members, err := d.store.SummaryIDsForInsight(ctx, insightID)
	if err != nil {
		return nil, err
	}
	impact.ClusterMembers = len(members)

	insightPath := d.paths.L2Path(ins.Category, ins.Title)
	impact.Files = existingFiles(insightPath, vaultpath.ReviewPath(insightPath))
	return impact, nil
}

// removeFiles deletes best-effort: a missing file is not an error, the goal
// is absence.
func (d *Deleter) removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			d.log.Logf("remove %s: %v", p, err)
		}
	}
}

func existingFiles(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func summaryIDs(summaries []*types.SummaryVersion) []string {
	ids := make([]string, len(summaries))
	for i, sv := range summaries {
		ids[i] = sv.ID
	}
	return ids
}
