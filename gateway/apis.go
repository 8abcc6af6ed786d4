package gateway

import (
	"github.com/dux-project/dux/common/api"
	"github.com/dux-project/dux/duplicates"
	"github.com/dux-project/dux/remote"
	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/treemap"
	"github.com/gin-gonic/gin"
)

type controller struct {
	session *Session
}

func (ctrl *controller) startLocalScan(c *gin.Context) (interface{}, error) {
	var input struct {
		Path          string `json:"path" binding:"required"`
		MaxDepth      int    `json:"maxDepth" binding:"min=0"`
		IncludeHidden bool   `json:"includeHidden"`
		Routines      int    `json:"routines" binding:"min=0,max=64"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		return nil, err
	}

	if err := scan.CheckRoot(input.Path); err != nil {
		return nil, ErrScanRoot.WithData(err.Error())
	}

	opt := scan.Options{
		MaxDepth:      input.MaxDepth,
		IncludeHidden: input.IncludeHidden,
		Routines:      input.Routines,
	}

	if err := ctrl.session.StartLocal(input.Path, opt); err != nil {
		return nil, err
	}

	return ctrl.session.Status(), nil
}

func (ctrl *controller) startRemoteScan(c *gin.Context) (interface{}, error) {
	var input struct {
		ProfileID string `json:"profileId" binding:"required"`
		Path      string `json:"path"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		return nil, err
	}

	if err := ctrl.session.StartRemote(input.ProfileID, input.Path); err != nil {
		return nil, err
	}

	return ctrl.session.Status(), nil
}

func (ctrl *controller) cancelScan(c *gin.Context) (interface{}, error) {
	ctrl.session.Cancel()
	return ctrl.session.Status(), nil
}

func (ctrl *controller) getProgress(c *gin.Context) (interface{}, error) {
	return ctrl.session.Status(), nil
}

func (ctrl *controller) getTreemap(c *gin.Context) (interface{}, error) {
	var input struct {
		Path     string  `form:"path"`
		Width    float64 `form:"width" binding:"required,gt=0"`
		Height   float64 `form:"height" binding:"required,gt=0"`
		MaxDepth int     `form:"maxDepth" binding:"min=0"`
		MaxRects int     `form:"maxRects" binding:"min=0"`
	}

	if err := c.ShouldBindQuery(&input); err != nil {
		return nil, err
	}

	bounds := treemap.Bounds{Width: input.Width, Height: input.Height}

	return ctrl.session.Layout(input.Path, bounds, input.MaxDepth, input.MaxRects)
}

func (ctrl *controller) search(c *gin.Context) (interface{}, error) {
	var input struct {
		Query string `form:"q" binding:"required"`
		Limit int    `form:"limit" binding:"min=0"`
	}

	if err := c.ShouldBindQuery(&input); err != nil {
		return nil, err
	}

	if input.Limit == 0 {
		input.Limit = 100
	}

	return ctrl.session.Search(input.Query, input.Limit)
}

var contentTypes = map[string]string{
	"json": "application/json",
	"csv":  "text/csv",
	"top":  "application/json",
}

func (ctrl *controller) export(c *gin.Context) {
	var input struct {
		Format string `form:"format"`
		Top    int    `form:"top" binding:"min=0"`
	}

	if err := c.ShouldBindQuery(&input); err != nil {
		api.Abort(c, err)
		return
	}

	if len(input.Format) == 0 {
		input.Format = "json"
	}

	contentType, ok := contentTypes[input.Format]
	if !ok {
		api.Abort(c, ErrUnknownFormat.WithData(input.Format))
		return
	}

	if input.Format == "top" && input.Top == 0 {
		input.Top = 50
	}

	if status := ctrl.session.Status(); len(status.Root) == 0 {
		api.Abort(c, ErrNoTree)
		return
	}

	c.Header("Content-Type", contentType)
	if err := ctrl.session.Export(c.Writer, input.Format, input.Top); err != nil {
		api.Abort(c, err)
	}
}

func (ctrl *controller) removeNode(c *gin.Context) (interface{}, error) {
	var input struct {
		Path string `form:"path" binding:"required"`
	}

	if err := c.ShouldBindQuery(&input); err != nil {
		return nil, err
	}

	return ctrl.session.Remove(input.Path)
}

func (ctrl *controller) getDiskSpace(c *gin.Context) (interface{}, error) {
	var input struct {
		Path string `form:"path"`
	}

	if err := c.ShouldBindQuery(&input); err != nil {
		return nil, err
	}

	if len(input.Path) == 0 {
		input.Path = ctrl.session.DiskPath()
	}

	if len(input.Path) == 0 {
		return nil, api.ErrValidation.WithData("path not specified")
	}

	return scan.GetDiskSpace(input.Path)
}

func (ctrl *controller) listProfiles(c *gin.Context) (interface{}, error) {
	return ctrl.session.store.List(), nil
}

func (ctrl *controller) putProfile(c *gin.Context) (interface{}, error) {
	// credentials are never serialized with the profile
	var input struct {
		remote.Profile
		Password   string `json:"password"`
		Passphrase string `json:"passphrase"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		return nil, err
	}

	profile := input.Profile
	profile.Password = input.Password
	profile.Passphrase = input.Passphrase

	if err := ctrl.session.store.Put(&profile); err != nil {
		return nil, api.ErrValidation.WithData(err.Error())
	}

	profile.Normalize()

	return profile.ID, nil
}

func (ctrl *controller) testProfile(c *gin.Context) (interface{}, error) {
	var input struct {
		ProfileID string `json:"profileId" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		return nil, err
	}

	profile, ok := ctrl.session.store.Get(input.ProfileID)
	if !ok {
		return nil, ErrProfileNotFound.WithData(input.ProfileID)
	}

	return ctrl.session.adapter.Test(c.Request.Context(), profile)
}

func (ctrl *controller) findDuplicates(c *gin.Context) (interface{}, error) {
	var input struct {
		MinSize       int64 `form:"minSize" binding:"min=0"`
		IncludeHidden bool  `form:"includeHidden"`
		Routines      int   `form:"routines" binding:"min=0,max=64"`
	}

	if err := c.ShouldBindQuery(&input); err != nil {
		return nil, err
	}

	opt := duplicates.Options{
		MinSize:       input.MinSize,
		IncludeHidden: input.IncludeHidden,
		Routines:      input.Routines,
	}

	return ctrl.session.Duplicates(c.Request.Context(), opt)
}

func (ctrl *controller) getCategoryStats(c *gin.Context) (interface{}, error) {
	return ctrl.session.CategoryStats()
}
