package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chazu/mannequin/pkg/animation"
	"github.com/chazu/mannequin/pkg/engine"
	"github.com/chazu/mannequin/pkg/figure"
	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chazu/mannequin/pkg/studio"
	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// errorStatus maps studio errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, studio.ErrNodeNotFound),
		errors.Is(err, figure.ErrUnknownJoint),
		errors.Is(err, animation.ErrUnknownScript):
		return http.StatusNotFound
	case errors.Is(err, scene.ErrFrameOutOfRange),
		errors.Is(err, scene.ErrCycle),
		errors.Is(err, studio.ErrSceneRoot),
		errors.Is(err, studio.ErrFigureNode),
		errors.Is(err, kernel.ErrUnknownShape),
		errors.Is(err, kernel.ErrInvalidParams),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	var evalErrs engine.EvalErrors
	if errors.As(err, &evalErrs) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrapf(errBadRequest, "decode body: %v", err)
	}
	return nil
}

func frameVar(r *http.Request) (int, error) {
	frame, err := strconv.Atoi(mux.Vars(r)["frame"])
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "frame: %v", err)
	}
	return frame, nil
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.studio.Tree())
}

type generateRequest struct {
	Kind kernel.Kind `json:"kind"`
	Name string      `json:"name"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.studio.GenerateMesh(req.Kind, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	info, err := s.studio.Node(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Remove(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIsolate(w http.ResponseWriter, r *http.Request) {
	info, err := s.studio.IsolateScale(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

type reparentRequest struct {
	Parent string `json:"parent"`
}

func (s *Server) handleReparent(w http.ResponseWriter, r *http.Request) {
	var req reparentRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.studio.Reparent(id, req.Parent); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleNode(w, r)
}

func (s *Server) handleGetTransform(w http.ResponseWriter, r *http.Request) {
	k, err := s.studio.Transform(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, k)
}

func (s *Server) handleSetTransform(w http.ResponseWriter, r *http.Request) {
	var patch studio.TransformPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, err)
		return
	}
	k, err := s.studio.SetTransform(mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, k)
}

func (s *Server) handleKeyframes(w http.ResponseWriter, r *http.Request) {
	frames, err := s.studio.Keyframes(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]int{"frames": frames})
}

func (s *Server) handleClearKeyframes(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.ClearKeyframes(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIsKeyframe(w http.ResponseWriter, r *http.Request) {
	frame, err := frameVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok, err := s.studio.FrameIsKeyFrame(mux.Vars(r)["id"], frame)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"keyframe": ok})
}

func (s *Server) handleSaveKeyframe(w http.ResponseWriter, r *http.Request) {
	frame, err := frameVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.studio.SaveKeyframe(mux.Vars(r)["id"], frame); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleKeyframes(w, r)
}

func (s *Server) handleRemoveKeyframe(w http.ResponseWriter, r *http.Request) {
	frame, err := frameVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.studio.RemoveKeyframe(mux.Vars(r)["id"], frame); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleKeyframes(w, r)
}

func (s *Server) handleLoadFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := frameVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.studio.LoadFrame(frame))
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.studio.Pose())
}

func (s *Server) handleMeshes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.studio.Meshes())
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	b, ok := s.studio.Bounds()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"min":    b.Min,
		"max":    b.Max,
		"center": b.Center(),
		"size":   b.Size(),
	})
}

func (s *Server) handleShapes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.studio.Shapes())
}

func (s *Server) handleSetMaxFrames(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxFrames int `json:"maxFrames"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.studio.SetMaxFrames(req.MaxFrames); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"maxFrames": req.MaxFrames})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	type finding struct {
		Node     string `json:"node"`
		Name     string `json:"name"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	errs := s.studio.Validate()
	findings := []finding{}
	for _, e := range errs {
		findings = append(findings, finding{
			Node:     e.NodeID.String(),
			Name:     e.Name,
			Severity: e.Severity.String(),
			Message:  e.Message,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    !scene.HasErrors(errs),
		"findings": findings,
	})
}

func (s *Server) handleRebuildFigure(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.studio.RebuildFigure())
}

func (s *Server) handleJoint(w http.ResponseWriter, r *http.Request) {
	id, err := s.studio.Joint(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleAnimations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.studio.Animations())
}

func (s *Server) handleApplyAnimation(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.ApplyAnimation(mux.Vars(r)["name"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.studio.Tree())
}

type evalRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.studio.EvaluateScript(req.Source)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if len(res.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, res)
}

func (s *Server) handleDebugNode(w http.ResponseWriter, r *http.Request) {
	d, err := s.studio.Inspect(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, dumpConfig.Sdump(d))
}
