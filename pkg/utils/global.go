package utils

//PlayerClass is the detector class of an outfield player
const PlayerClass = "player"

//GoalkeeperClass is tracked as a player so team and possession logic treat both the same
const GoalkeeperClass = "goalkeeper"

//RefereeClass is the detector class of a referee
const RefereeClass = "referee"

//BallClass is the detector class of the ball
const BallClass = "ball"

//AllowedVideoFormats are the upload extensions the analyzer accepts
var AllowedVideoFormats = []string{"mp4", "avi", "mov"}

//KmhPerMps converts meters per second to kilometers per hour
const KmhPerMps = 3.6

//ResultSuffix is appended to a video's base name for its stored analysis result
const ResultSuffix = ".tracks.json"

//DetectionsSuffix marks a precomputed detections file stored next to an uploaded video
const DetectionsSuffix = ".detections.jsonl"

//ChartSuffix is appended to a video's base name for its distance chart
const ChartSuffix = ".distance.png"

//SummarySuffix is appended to a video's base name for its per-player summary
const SummarySuffix = ".summary.json"
