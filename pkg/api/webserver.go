package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chenBenjamin97/football-analyzer/pkg/config"
	"github.com/chenBenjamin97/football-analyzer/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//Tagger analyzes an uploaded video; Tag is run in its own goroutine and must report its own errors
type Tagger interface {
	Tag(job, srcVideoName string)
}

//requestLogger writes one line per request
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		logger.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("took", time.Since(started)).
			Msg("request")
	}
}

//serveExisting answers 404 when path does not exist and serves it otherwise
func serveExisting(ctx *gin.Context, path, contentType string) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			ctx.Status(http.StatusNotFound)
		} else {
			ctx.Status(http.StatusInternalServerError)
		}
		return
	}

	if contentType != "" {
		ctx.Header("Content-Type", contentType)
	}
	http.ServeFile(ctx.Writer, ctx.Request, path)
}

//resultFile maps the 'name' query parameter to an output file in the results directory
func resultFile(cfg *config.Config, suffix, contentType string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}
		serveExisting(ctx, filepath.Join(cfg.Directory.Results, utils.BaseName(videoName)+suffix), contentType)
	}
}

func SetRouter(cfg *config.Config, tagger Tagger, logger zerolog.Logger) *gin.Engine {
	logger = logger.With().Str("component", "api").Logger()

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	//serve html pages to client
	if static := cfg.Frontend.StaticFilesPath; static != "" {
		r.Static("/client", static)
		r.StaticFile("/", filepath.Join(static, "home_page/dist/index.html"))
	}

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/ReadyVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(cfg.Directory.Ready); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/UserUploadsVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(cfg.Directory.Source); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Play", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		analyzed := ctx.Query("analyzed")
		if analyzed != "true" && analyzed != "false" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		dir := cfg.Directory.Source
		if analyzed == "true" {
			dir = cfg.Directory.Ready
		}
		videoPath := filepath.Join(dir, filepath.Base(videoName)+"."+cfg.Video.ProdFormat)
		serveExisting(ctx, videoPath, "video/"+cfg.Video.ProdFormat)
	})

	apiRoutes.POST("/Upload", func(ctx *gin.Context) {
		fHeader, err := ctx.FormFile("video")
		if err != nil {
			ctx.Status(http.StatusBadRequest)
			return
		}

		name := filepath.Base(fHeader.Filename)
		if !utils.AllowedVideo(name) {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		if existNames, err := utils.ListDir(cfg.Directory.Source); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		} else if utils.InSlice(name, existNames) {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		logger.Info().Str("name", name).Int64("bytes", fHeader.Size).Msg("received new video")

		//optional precomputed detections, saved next to the video
		if detHeader, err := ctx.FormFile("detections"); err == nil {
			detPath := filepath.Join(cfg.Directory.Source, utils.BaseName(name)+utils.DetectionsSuffix)
			if err := ctx.SaveUploadedFile(detHeader, detPath); err != nil {
				logger.Error().Err(err).Str("path", detPath).Msg("could not save detections")
				ctx.Status(http.StatusInternalServerError)
				return
			}
		}

		srcFilePath := filepath.Join(cfg.Directory.Source, name)
		if err := ctx.SaveUploadedFile(fHeader, srcFilePath); err != nil {
			logger.Error().Err(err).Str("path", srcFilePath).Msg("could not save video")
			ctx.Status(http.StatusInternalServerError)
			return
		}

		job := uuid.NewString()
		go tagger.Tag(job, name)

		ctx.JSON(http.StatusAccepted, gin.H{"job": job})
	})

	apiRoutes.GET("/Results", resultFile(cfg, utils.ResultSuffix, "application/json"))
	apiRoutes.GET("/Summary", resultFile(cfg, utils.SummarySuffix, "application/json"))
	apiRoutes.GET("/Chart", resultFile(cfg, utils.ChartSuffix, "image/png"))

	return r
}
