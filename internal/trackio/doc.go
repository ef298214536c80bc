// Package trackio reads the tracker's file inputs and writes its tabular
// output.
//
// Inputs are comma-separated text with '#' comment lines:
//
//   - calibration: pixel_x,pixel_y,map_x,map_y per row, at least four rows
//   - entry regions: x1,y1,x2,y2,... per row, one map-space polygon each
//   - detections: MOT rows frame,class,x,y,w,h,confidence[,...]
//
// Output rows are frame,track_id,x,y,w,h,map_x,map_y with every value
// truncated to an integer.
package trackio
