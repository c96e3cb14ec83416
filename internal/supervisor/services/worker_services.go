// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package services

import (
	"context"

	"github.com/colligo-dev/colligo/internal/feed"
	"github.com/colligo-dev/colligo/internal/reconcile"
)

// ReconcilerService runs the like reconciler's scheduled loop under
// supervision.
type ReconcilerService struct {
	reconciler *reconcile.Reconciler
}

func NewReconcilerService(reconciler *reconcile.Reconciler) *ReconcilerService {
	return &ReconcilerService{reconciler: reconciler}
}

// Serve implements suture.Service.
func (s *ReconcilerService) Serve(ctx context.Context) error {
	return s.reconciler.Run(ctx)
}

func (s *ReconcilerService) String() string { return "like-reconciler" }

// RefresherService runs the background feed refresh worker under supervision.
type RefresherService struct {
	refresher *feed.Refresher
}

func NewRefresherService(refresher *feed.Refresher) *RefresherService {
	return &RefresherService{refresher: refresher}
}

// Serve implements suture.Service.
func (s *RefresherService) Serve(ctx context.Context) error {
	return s.refresher.Run(ctx)
}

func (s *RefresherService) String() string { return "feed-refresher" }
