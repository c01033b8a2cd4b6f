// Package audio picks the audio stream a source should be transcribed from.
//
// Uploads from screen recorders and phones often carry more than one audio
// track: a commentary or narration track, an audio description track, or
// several languages. Select ranks the probed streams and reports which one
// ffmpeg should map when extracting the transcription WAV.
//
// Ranking, highest first:
//  1. Main program audio over commentary and audio description
//  2. The configured transcription language, when one is set
//  3. The container's default track
//  4. Stereo or wider over mono
//  5. Earlier tracks
package audio
