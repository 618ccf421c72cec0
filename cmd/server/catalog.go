package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/service"
	"github.com/kinternationals/estimator/internal/store"
)

type categoriesViewData struct {
	baseViewData
	Categories []store.Category
}

type categoryFormViewData struct {
	baseViewData
	ID         string
	Input      service.CategoryInput
	Categories []store.Category
}

type productsViewData struct {
	baseViewData
	Category   string
	Categories []store.Category
	Products   []store.Product
}

type productFormViewData struct {
	baseViewData
	ID         string
	Input      service.ProductInput
	Categories []store.Category
}

type productDetailViewData struct {
	baseViewData
	Product service.ProductDetail
}

func (s *server) handleCategoriesList(w http.ResponseWriter, r *http.Request) {
	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		httpError(w, "list categories", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "categories.html", categoriesViewData{baseViewData: s.base(r), Categories: categories})
}

func (s *server) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, data categoryFormViewData) {
	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		httpError(w, "list categories", err)
		return
	}
	for _, c := range categories {
		if c.ID != data.ID {
			data.Categories = append(data.Categories, c)
		}
	}
	s.renderTemplate(w, status, "category_form.html", data)
}

func (s *server) handleCategoryNew(w http.ResponseWriter, r *http.Request) {
	s.renderCategoryForm(w, r, http.StatusOK, categoryFormViewData{baseViewData: s.base(r)})
}

func (s *server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in, err := parseCategoryForm(r)
	if err == nil {
		_, err = s.catalog.CreateCategory(r.Context(), in)
	}
	if err != nil {
		data := categoryFormViewData{baseViewData: s.base(r), Input: in}
		status := formFailure(&data.baseViewData, "create category", err)
		s.renderCategoryForm(w, r, status, data)
		return
	}

	redirectWithSuccess(w, r, "/categories", "Category created")
}

func (s *server) handleCategoryEdit(w http.ResponseWriter, r *http.Request) {
	c, err := s.catalog.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, "get category", err)
		return
	}
	s.renderCategoryForm(w, r, http.StatusOK, categoryFormViewData{
		baseViewData: s.base(r),
		ID:           c.ID,
		Input: service.CategoryInput{
			Name:         c.Name,
			Slug:         c.Slug,
			Description:  c.Description,
			ParentID:     c.ParentID,
			DisplayOrder: c.DisplayOrder,
		},
	})
}

func (s *server) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in, err := parseCategoryForm(r)
	if err == nil {
		_, err = s.catalog.UpdateCategory(r.Context(), id, in)
	}
	if err != nil {
		data := categoryFormViewData{baseViewData: s.base(r), ID: id, Input: in}
		status := formFailure(&data.baseViewData, "update category", err)
		if status == http.StatusNotFound {
			http.Error(w, data.ErrorMessage, status)
			return
		}
		s.renderCategoryForm(w, r, status, data)
		return
	}

	redirectWithSuccess(w, r, "/categories", "Category updated")
}

func (s *server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirectWithError(w, r, "/categories", "delete category", err)
		return
	}
	redirectWithSuccess(w, r, "/categories", "Category deleted")
}

func (s *server) handleProductsList(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("category")
	products, err := s.catalog.ListProducts(r.Context(), slug)
	if err != nil {
		httpError(w, "list products", err)
		return
	}
	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		httpError(w, "list categories", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "products.html", productsViewData{
		baseViewData: s.base(r),
		Category:     slug,
		Categories:   categories,
		Products:     products,
	})
}

func (s *server) renderProductForm(w http.ResponseWriter, r *http.Request, status int, data productFormViewData) {
	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		httpError(w, "list categories", err)
		return
	}
	data.Categories = categories
	s.renderTemplate(w, status, "product_form.html", data)
}

func (s *server) handleProductNew(w http.ResponseWriter, r *http.Request) {
	s.renderProductForm(w, r, http.StatusOK, productFormViewData{
		baseViewData: s.base(r),
		Input: service.ProductInput{
			Unit:    "piece",
			TaxRate: decimal.NewNullDecimal(s.catalog.DefaultTaxRate()),
		},
	})
}

func (s *server) handleProductCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in, err := parseProductForm(r)
	var p store.Product
	if err == nil {
		p, err = s.catalog.CreateProduct(r.Context(), in)
	}
	if err != nil {
		data := productFormViewData{baseViewData: s.base(r), Input: in}
		status := formFailure(&data.baseViewData, "create product", err)
		s.renderProductForm(w, r, status, data)
		return
	}

	redirectWithSuccess(w, r, "/products/"+p.ID, "Product created")
}

func (s *server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, "get product", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "product_detail.html", productDetailViewData{baseViewData: s.base(r), Product: p})
}

func (s *server) handleProductEdit(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, "get product", err)
		return
	}
	s.renderProductForm(w, r, http.StatusOK, productFormViewData{
		baseViewData: s.base(r),
		ID:           p.ID,
		Input: service.ProductInput{
			SKU:           p.SKU,
			Name:          p.Name,
			Description:   p.Description,
			CategoryID:    p.CategoryID,
			Unit:          p.Unit,
			BasePrice:     p.BasePrice,
			CostPrice:     p.CostPrice,
			TaxRate:       decimal.NewNullDecimal(p.TaxRate),
			StockQuantity: p.StockQuantity,
		},
	})
}

func (s *server) handleProductUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in, err := parseProductForm(r)
	if err == nil {
		_, err = s.catalog.UpdateProduct(r.Context(), id, in)
	}
	if err != nil {
		data := productFormViewData{baseViewData: s.base(r), ID: id, Input: in}
		status := formFailure(&data.baseViewData, "update product", err)
		if status == http.StatusNotFound {
			http.Error(w, data.ErrorMessage, status)
			return
		}
		s.renderProductForm(w, r, status, data)
		return
	}

	redirectWithSuccess(w, r, "/products/"+id, "Product updated")
}

func (s *server) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirectWithError(w, r, "/products", "delete product", err)
		return
	}
	redirectWithSuccess(w, r, "/products", "Product deleted")
}
