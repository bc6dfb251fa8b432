package handler

import (
	"net/http"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

// MasterDataHandler serves clusters and the category tree
type MasterDataHandler struct {
	clusterService  *service.ClusterService
	categoryService *service.CategoryService
	logger          *zap.Logger
}

func NewMasterDataHandler(clusterService *service.ClusterService, categoryService *service.CategoryService, logger *zap.Logger) *MasterDataHandler {
	return &MasterDataHandler{
		clusterService:  clusterService,
		categoryService: categoryService,
		logger:          logger,
	}
}

// ListClusters godoc
// @Summary List clusters
// @Tags Master Data
// @Produce json
// @Success 200 {array} domain.ClusterDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clusters [get]
func (h *MasterDataHandler) ListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.clusterService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "list clusters", err)
		return
	}
	respondJSON(w, http.StatusOK, clusters)
}

// CreateCluster godoc
// @Summary Create cluster
// @Tags Master Data
// @Accept json
// @Produce json
// @Param request body domain.CreateClusterRequest true "Cluster data"
// @Success 201 {object} domain.ClusterDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clusters [post]
func (h *MasterDataHandler) CreateCluster(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClusterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cluster, err := h.clusterService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, "create cluster", err)
		return
	}
	respondJSON(w, http.StatusCreated, cluster)
}

func (h *MasterDataHandler) GetCluster(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "clusterId")
	if !ok {
		return
	}
	cluster, err := h.clusterService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "get cluster", err)
		return
	}
	respondJSON(w, http.StatusOK, cluster)
}

func (h *MasterDataHandler) UpdateCluster(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "clusterId")
	if !ok {
		return
	}
	var req domain.UpdateClusterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cluster, err := h.clusterService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "update cluster", err)
		return
	}
	respondJSON(w, http.StatusOK, cluster)
}

func (h *MasterDataHandler) DeleteCluster(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "clusterId")
	if !ok {
		return
	}
	if err := h.clusterService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, "delete cluster", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories godoc
// @Summary List categories
// @Description All categories, or the direct children of parentId
// @Tags Master Data
// @Produce json
// @Param parentId query string false "Parent category" format(uuid)
// @Success 200 {array} domain.CategoryDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /categories [get]
func (h *MasterDataHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	parentID, err := queryUUID(r, "parentId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	categories, err := h.categoryService.List(r.Context(), parentID)
	if err != nil {
		respondServiceError(w, h.logger, "list categories", err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// CreateCategory godoc
// @Summary Create category
// @Description Create a category, optionally under a parent. The tree is at most five levels deep.
// @Tags Master Data
// @Accept json
// @Produce json
// @Param request body domain.CreateCategoryRequest true "Category data"
// @Success 201 {object} domain.CategoryDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /categories [post]
func (h *MasterDataHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	category, err := h.categoryService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, "create category", err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (h *MasterDataHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "categoryId")
	if !ok {
		return
	}
	category, err := h.categoryService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "get category", err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (h *MasterDataHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "categoryId")
	if !ok {
		return
	}
	var req domain.UpdateCategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	category, err := h.categoryService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "update category", err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a leaf category that no season data refers to
func (h *MasterDataHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "categoryId")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
