// Package analytics aggregates ad performance, attributes delivered sales to
// the campaign hierarchy and ranks entities by derived KPIs.
//
// Everything here is a pure function over in-memory snapshots: inputs are
// never mutated and every call rebuilds its outputs from scratch, so a single
// snapshot can be shared by concurrent callers.
package analytics

import "github.com/radiusdt/vector-insights/internal/models"

// HierarchyIndex resolves a creative to its ad set and campaign in constant
// time. Build a fresh one whenever the hierarchy collections change.
type HierarchyIndex struct {
	adSetOfCreative   map[string]string
	campaignOfAdSet   map[string]string
	campaignNames     map[string]string
	adSetNames        map[string]string
	creativeNames     map[string]string
	campaignStatuses  map[string]models.CampaignStatus
	referencedCampIDs map[string]struct{}
}

// NewHierarchyIndex indexes the three hierarchy collections. Campaigns are
// optional for resolution (ad sets carry the campaign id) and only feed
// names, statuses and KnowsCampaign.
func NewHierarchyIndex(campaigns []models.Campaign, adSets []models.AdSet, creatives []models.Creative) *HierarchyIndex {
	idx := &HierarchyIndex{
		adSetOfCreative:   make(map[string]string, len(creatives)),
		campaignOfAdSet:   make(map[string]string, len(adSets)),
		campaignNames:     make(map[string]string, len(campaigns)),
		adSetNames:        make(map[string]string, len(adSets)),
		creativeNames:     make(map[string]string, len(creatives)),
		campaignStatuses:  make(map[string]models.CampaignStatus, len(campaigns)),
		referencedCampIDs: make(map[string]struct{}, len(adSets)),
	}
	for _, c := range campaigns {
		idx.campaignNames[c.ID] = c.Name
		idx.campaignStatuses[c.ID] = c.Status
	}
	for _, a := range adSets {
		idx.adSetNames[a.ID] = a.Name
		if a.CampaignID != "" {
			idx.campaignOfAdSet[a.ID] = a.CampaignID
			idx.referencedCampIDs[a.CampaignID] = struct{}{}
		}
	}
	for _, c := range creatives {
		idx.creativeNames[c.ID] = c.Name
		if c.AdSetID != "" {
			idx.adSetOfCreative[c.ID] = c.AdSetID
		}
	}
	return idx
}

// AdSetOf returns the ad set owning creativeID. It fails when the creative is
// unknown or its ad set no longer exists.
func (h *HierarchyIndex) AdSetOf(creativeID string) (string, bool) {
	adSetID, ok := h.adSetOfCreative[creativeID]
	if !ok {
		return "", false
	}
	if _, exists := h.adSetNames[adSetID]; !exists {
		return "", false
	}
	return adSetID, true
}

// CampaignOf walks creative -> ad set -> campaign. Either broken link yields
// false; it never panics on orphans.
func (h *HierarchyIndex) CampaignOf(creativeID string) (string, bool) {
	adSetID, ok := h.AdSetOf(creativeID)
	if !ok {
		return "", false
	}
	campaignID, ok := h.campaignOfAdSet[adSetID]
	if !ok || !h.KnowsCampaign(campaignID) {
		return "", false
	}
	return campaignID, true
}

// KnowsCampaign reports whether id is a campaign of the snapshot. When the
// campaigns collection was not supplied, a campaign referenced by any ad set
// counts as known.
func (h *HierarchyIndex) KnowsCampaign(id string) bool {
	if id == "" {
		return false
	}
	if len(h.campaignNames) > 0 {
		_, ok := h.campaignNames[id]
		return ok
	}
	_, ok := h.referencedCampIDs[id]
	return ok
}

// KnowsAdSet reports whether id is an ad set of the snapshot.
func (h *HierarchyIndex) KnowsAdSet(id string) bool {
	_, ok := h.adSetNames[id]
	return ok
}

// CampaignStatus returns the lifecycle status of a known campaign.
func (h *HierarchyIndex) CampaignStatus(id string) (models.CampaignStatus, bool) {
	s, ok := h.campaignStatuses[id]
	return s, ok
}

// CampaignOfAdSet returns the campaign owning adSetID.
func (h *HierarchyIndex) CampaignOfAdSet(adSetID string) (string, bool) {
	id, ok := h.campaignOfAdSet[adSetID]
	if !ok || !h.KnowsCampaign(id) {
		return "", false
	}
	return id, true
}

func (h *HierarchyIndex) CampaignName(id string) (string, bool) {
	n, ok := h.campaignNames[id]
	return n, ok
}

func (h *HierarchyIndex) AdSetName(id string) (string, bool) {
	n, ok := h.adSetNames[id]
	return n, ok
}

func (h *HierarchyIndex) CreativeName(id string) (string, bool) {
	n, ok := h.creativeNames[id]
	return n, ok
}
