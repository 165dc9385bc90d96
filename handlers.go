package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the search and procurement endpoints.
type Handler struct {
	store    Store
	reader   ChannelReader
	analyzer Analyzer
	logger   *zap.SugaredLogger
}

// NewHandler creates a Handler with dependencies.
func NewHandler(store Store, reader ChannelReader, analyzer Analyzer, logger *zap.SugaredLogger) *Handler {
	return &Handler{store: store, reader: reader, analyzer: analyzer, logger: logger}
}

// routes builds the request mux. Shared by main and the tests.
func (h *Handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", h.searchHandler)
	mux.HandleFunc("/library", h.libraryHandler)
	mux.HandleFunc("/library/search", h.librarySearchHandler)
	mux.HandleFunc("/rfq", h.rfqHandler)
	mux.HandleFunc("/open", h.openHandler)
	return mux
}

// searchHandler processes POST /search: resolve channel, fetch and filter
// posts, run the analysis, return everything in one response. An analysis
// failure is embedded in the body and does not fail the request.
func (h *Handler) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.InviteLink) == "" {
		respondError(w, http.StatusBadRequest, "Valid inviteLink required")
		return
	}

	ctx := r.Context()
	ch, err := h.reader.Resolve(ctx, req.InviteLink)
	if err != nil {
		h.respondChannelError(w, err)
		return
	}

	posts, err := h.reader.RecentPosts(ctx, ch, fetchWindow)
	if err != nil {
		h.respondChannelError(w, err)
		return
	}

	matches := filterPosts(posts, req.KeyWord)
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	analysis := h.analyzer.Analyze(ctx, analysisPrompt(matches))

	respondJSON(w, http.StatusOK, searchResponse{
		ChannelInfo: channelInfo{ID: ch.ID, Title: ch.Title, Participants: ch.Participants},
		Matches:     matches,
		Analysis:    analysis,
	})
}

// respondChannelError translates channel resolution and access failures
// into user-facing messages, always keeping the raw detail alongside.
func (h *Handler) respondChannelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotChannel):
		respondError(w, http.StatusBadRequest, "Invite link does not point to a channel")
	case errors.Is(err, ErrInviteInvalid):
		respondErrorDetails(w, http.StatusBadRequest, "Invalid or expired invite link", err)
	case errors.Is(err, ErrChannelPrivate):
		respondErrorDetails(w, http.StatusBadRequest, "Join the channel first to access content", err)
	default:
		h.logger.Errorw("telegram error", "error", err)
		respondErrorDetails(w, http.StatusInternalServerError, "Something went wrong", err)
	}
}

// libraryHandler routes /library by method.
func (h *Handler) libraryHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListCompanies(w, r)
	case http.MethodPost:
		h.handleCreateProduct(w, r)
	case http.MethodPut:
		h.handleUpdateProduct(w, r)
	case http.MethodDelete:
		h.handleDeleteProduct(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT, DELETE")
	}
}

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.store.ListCompanies(r.Context())
	if err != nil {
		h.serverError(w, "list companies", err)
		return
	}
	respondJSON(w, http.StatusOK, companies)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		respondError(w, http.StatusBadRequest, "companyName is required")
		return
	}
	company, err := h.store.AppendProduct(r.Context(), req.CompanyName, Product{
		Item:  req.Item,
		Price: req.Price,
		Note:  req.Note,
	})
	if err != nil {
		h.serverError(w, "append product", err)
		return
	}
	respondJSON(w, http.StatusCreated, company)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	var req deleteProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	companyID, productID, ok := parseIDPair(w, req.CompanyID, req.ProductID, "companyId", "productId")
	if !ok {
		return
	}
	if err := h.store.DeleteProduct(r.Context(), companyID, productID); err != nil {
		h.serverError(w, "delete product", err)
		return
	}
	respondMessage(w, "Product deleted successfully")
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	companyID, productID, ok := parseIDPair(w, req.CompanyID, req.ProductID, "companyId", "productId")
	if !ok {
		return
	}
	if err := h.store.UpdateProduct(r.Context(), companyID, productID, req.Updates); err != nil {
		h.serverError(w, "update product", err)
		return
	}
	respondMessage(w, "Product updated successfully")
}

// rfqHandler routes /rfq by method.
func (h *Handler) rfqHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListRFQs(w, r)
	case http.MethodPost:
		h.handleCreateQuotation(w, r)
	case http.MethodPut:
		h.handleUpdateQuotation(w, r)
	case http.MethodDelete:
		h.handleDeleteQuotation(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT, DELETE")
	}
}

func (h *Handler) handleListRFQs(w http.ResponseWriter, r *http.Request) {
	rfqs, err := h.store.ListRFQs(r.Context())
	if err != nil {
		h.serverError(w, "list rfqs", err)
		return
	}
	respondJSON(w, http.StatusOK, rfqs)
}

func (h *Handler) handleCreateQuotation(w http.ResponseWriter, r *http.Request) {
	var req createQuotationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.QuoteRequest) == "" {
		respondError(w, http.StatusBadRequest, "QuoteRequest is required")
		return
	}
	rfq, err := h.store.AppendQuotation(r.Context(), req.QuoteRequest, Quotation{
		QuotedItem:  req.QuotedItem,
		QuotedPrice: req.QuotedPrice,
		QuotedNote:  req.QuotedNote,
	})
	if err != nil {
		h.serverError(w, "append quotation", err)
		return
	}
	respondJSON(w, http.StatusCreated, rfq)
}

func (h *Handler) handleDeleteQuotation(w http.ResponseWriter, r *http.Request) {
	var req deleteQuotationRequest
	if !h.decode(w, r, &req) {
		return
	}
	quoteID, itemID, ok := parseIDPair(w, req.QuoteID, req.ItemID, "quoteId", "itemId")
	if !ok {
		return
	}
	if err := h.store.DeleteQuotation(r.Context(), quoteID, itemID); err != nil {
		h.serverError(w, "delete quotation", err)
		return
	}
	respondMessage(w, "Quotation deleted successfully")
}

func (h *Handler) handleUpdateQuotation(w http.ResponseWriter, r *http.Request) {
	var req updateQuotationRequest
	if !h.decode(w, r, &req) {
		return
	}
	quoteID, itemID, ok := parseIDPair(w, req.QuoteID, req.ItemID, "quoteId", "itemId")
	if !ok {
		return
	}
	if err := h.store.UpdateQuotation(r.Context(), quoteID, itemID, req.Updates); err != nil {
		h.serverError(w, "update quotation", err)
		return
	}
	respondMessage(w, "Quotation updated successfully")
}

// openHandler routes /open by method.
func (h *Handler) openHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListTenders(w, r)
	case http.MethodPost:
		h.handleCreateBid(w, r)
	case http.MethodPut:
		h.handleUpdateBid(w, r)
	case http.MethodDelete:
		h.handleDeleteBid(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT, DELETE")
	}
}

func (h *Handler) handleListTenders(w http.ResponseWriter, r *http.Request) {
	tenders, err := h.store.ListTenders(r.Context())
	if err != nil {
		h.serverError(w, "list tenders", err)
		return
	}
	respondJSON(w, http.StatusOK, tenders)
}

func (h *Handler) handleCreateBid(w http.ResponseWriter, r *http.Request) {
	var req createBidRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.BidRequest) == "" {
		respondError(w, http.StatusBadRequest, "BidRequest is required")
		return
	}
	tender, err := h.store.AppendBid(r.Context(), req.BidRequest, Bid{
		BidItem:  req.BidItem,
		BidPrice: req.BidPrice,
		BidNote:  req.BidNote,
	})
	if err != nil {
		h.serverError(w, "append bid", err)
		return
	}
	respondJSON(w, http.StatusCreated, tender)
}

func (h *Handler) handleDeleteBid(w http.ResponseWriter, r *http.Request) {
	var req deleteBidRequest
	if !h.decode(w, r, &req) {
		return
	}
	tenderID, bidID, ok := parseIDPair(w, req.TenderID, req.BidID, "tenderId", "bidId")
	if !ok {
		return
	}
	if err := h.store.DeleteBid(r.Context(), tenderID, bidID); err != nil {
		h.serverError(w, "delete bid", err)
		return
	}
	respondMessage(w, "Bid deleted successfully")
}

func (h *Handler) handleUpdateBid(w http.ResponseWriter, r *http.Request) {
	var req updateBidRequest
	if !h.decode(w, r, &req) {
		return
	}
	tenderID, bidID, ok := parseIDPair(w, req.TenderID, req.BidID, "tenderId", "bidId")
	if !ok {
		return
	}
	if err := h.store.UpdateBid(r.Context(), tenderID, bidID, req.Updates); err != nil {
		h.serverError(w, "update bid", err)
		return
	}
	respondMessage(w, "Bid updated successfully")
}

// librarySearchHandler is a diagnostic echo endpoint kept for the frontend;
// it is not wired to any filtering logic.
func (h *Handler) librarySearchHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondMessage(w, "Working")
	case http.MethodPost:
		var query interface{}
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			query = nil
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message":     "Message received and sent back",
			"searchQuery": query,
		})
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// decode reads a single JSON object into v, rejecting unknown fields.
// Responds with 400 and returns false on any decoding problem.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request payload: %v", err))
		return false
	}
	if err := ensureSingleJSON(dec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ensureSingleJSON ensures only a single JSON object is in the request body.
func ensureSingleJSON(dec *json.Decoder) error {
	if t, err := dec.Token(); err != io.EOF || t != nil {
		return fmt.Errorf("request body must only contain a single JSON object")
	}
	return nil
}

// parseIDPair parses the two ObjectID hex fields addressing a child item.
func parseIDPair(w http.ResponseWriter, parentHex, childHex, parentName, childName string) (primitive.ObjectID, primitive.ObjectID, bool) {
	parentID, err := primitive.ObjectIDFromHex(parentHex)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", parentName))
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	childID, err := primitive.ObjectIDFromHex(childHex)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", childName))
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return parentID, childID, true
}

// serverError logs the failure with full detail and answers with a generic
// message; internals never reach the client.
func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Errorw("storage error", "op", op, "error", err)
	respondError(w, http.StatusInternalServerError, "Server error")
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondMessage(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondErrorDetails(w http.ResponseWriter, status int, msg string, err error) {
	respondJSON(w, status, map[string]string{"error": msg, "details": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	respondError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}
