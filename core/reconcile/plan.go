package reconcile

import (
	"context"
	"fmt"

	"oss-manager/core/catalog"
	"oss-manager/core/oss"
	"oss-manager/core/storage"
)

// ReconcileWithPlan reconciles and plans the actions selected by opts.
// It does NOT execute them; use ApplyPlan for that.
func ReconcileWithPlan(ctx context.Context, spec *Spec, cat Catalog, client storage.Client, opts Options) (*Plan, error) {
	cache, err := GetOrBuildCache(ctx, spec, cat, client)
	if err != nil {
		return nil, err
	}

	results := resultsFromCache(cache)
	summary, actions := buildPlan(results, cache, opts)

	return &Plan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// ApplyPlan executes the planned actions against the catalog. Storage is never
// modified. It requires opts.Confirmed and !opts.DryRun to run anything.
func ApplyPlan(ctx context.Context, spec *Spec, cat Catalog, plan *Plan, opts Options) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}
	defer InvalidateCache(spec)

	for _, action := range plan.Actions {
		switch action.Type {
		case ActionForget:
			err = cat.Forget(ctx, spec.Bucket, action.Path)
		case ActionRecord:
			err = cat.Record(ctx, catalog.Entry{
				Bucket:      spec.Bucket,
				Path:        action.Path,
				Size:        action.Size,
				ContentType: action.ContentType,
				Source:      SourceReconcile,
			})
		case ActionResize:
			err = cat.Resize(ctx, spec.Bucket, action.Path, action.Size)
		default:
			err = fmt.Errorf("unknown action type %q", action.Type)
		}
		if err != nil {
			return executed, fmt.Errorf("failed to %s %s: %w", action.Type, action.Path, err)
		}
		executed++
	}
	return executed, nil
}

// ReconcileAndApply plans and, when confirmed, applies the actions.
func ReconcileAndApply(ctx context.Context, spec *Spec, cat Catalog, client storage.Client, opts Options) (*Plan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec, cat, client, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, spec, cat, plan, opts)
	return plan, executed, err
}

func buildPlan(results []Result, cache *Cache, opts Options) (PlanSummary, []Action) {
	var summary PlanSummary
	var actions []Action

	summary.TotalItems = len(results)

	for _, result := range results {
		switch {
		case result.CatalogPresent && !result.StoragePresent:
			summary.MissingStorage++
			if opts.DoForget {
				actions = append(actions, Action{
					Type:   ActionForget,
					Path:   result.Path,
					Reason: "object missing in storage",
				})
				summary.ForgetActions++
			}

		case result.StoragePresent && !result.CatalogPresent:
			summary.MissingCatalog++
			if opts.DoRecord {
				info := cache.StorageIndex[result.Path]
				contentType := info.ContentType
				if contentType == "" {
					contentType = oss.ContentTypeFor(result.Path)
				}
				actions = append(actions, Action{
					Type:        ActionRecord,
					Path:        result.Path,
					Reason:      "object missing in catalog",
					Size:        result.StorageSize,
					ContentType: contentType,
				})
				summary.RecordActions++
			}

		case len(result.Mismatch) > 0:
			summary.Mismatches++
			if opts.DoResize {
				actions = append(actions, Action{
					Type:   ActionResize,
					Path:   result.Path,
					Reason: fmt.Sprintf("mismatch: %v", result.Mismatch),
					Size:   result.StorageSize,
				})
				summary.ResizeActions++
			}
		}
	}

	return summary, actions
}
